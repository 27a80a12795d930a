package respkv

import (
	"context"
	"sync"

	"github.com/raniellyferreira/respkv/replication"
	"github.com/raniellyferreira/respkv/server"
	"github.com/raniellyferreira/respkv/storage"
)

// Node is one respkv instance: a store, its replication identity and the
// server that exposes them. A replica node completes the handshake with
// its primary before it starts accepting clients.
type Node struct {
	// Configuration
	config *nodeConfig

	// Components
	storage *storage.Memory
	info    *replication.Info
	server  *server.Server
	metrics *server.Metrics
	client  *replication.Client // nil for a primary

	// State
	mu      sync.Mutex
	link    *replication.Link
	started bool
	closed  bool
}

// New creates a new Node with the given options
//
// The node is created but not started. Use Start() to run the handshake
// (for replicas) and begin serving clients.
//
// Example:
//
//	node, err := respkv.New(
//		respkv.WithAddr(":6380"),
//		respkv.WithReplicaOf("localhost 6379"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
func New(opts ...Option) (*Node, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	var storeOpts []storage.MemoryOption
	if cfg.clock != nil {
		storeOpts = append(storeOpts, storage.WithClock(cfg.clock))
	}
	stor := storage.NewMemory(storeOpts...)

	role := replication.RolePrimary
	if cfg.masterAddr != "" {
		role = replication.RoleReplica
	}

	info := &replication.Info{Role: role, ReplID: cfg.replID}
	if info.ReplID == "" {
		id, err := replication.NewReplicationID()
		if err != nil {
			return nil, err
		}
		info.ReplID = id
	}

	node := &Node{
		config:  cfg,
		storage: stor,
		info:    info,
	}

	if cfg.registry != nil {
		node.metrics = server.NewMetrics(cfg.registry, stor.Len)
	}

	node.server = server.NewServer(cfg.addr, server.NewExecutor(stor, info))
	node.server.SetLogger(cfg.logger)
	node.server.SetMetrics(node.metrics)

	if role == replication.RoleReplica {
		port, err := cfg.listeningPort()
		if err != nil {
			return nil, err
		}

		node.client = replication.NewClient(cfg.masterAddr, port)
		node.client.SetLogger(cfg.logger)
		node.client.SetConnectTimeout(cfg.connectTimeout)
		node.client.SetRetry(cfg.maxAttempts, cfg.backoff)
		if node.metrics != nil {
			node.client.SetMetrics(node.metrics)
		}
	}

	return node, nil
}

// Start runs the replication handshake when the node is a replica, then
// starts accepting clients.
//
// A replica whose handshake still fails after the configured retries
// returns a *SyncError and never opens its listener.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	if n.started {
		return nil // Already started
	}

	if n.client != nil {
		link, err := n.client.Connect(ctx)
		if err != nil {
			n.config.logger.Error("Replication handshake failed", "master", n.config.masterAddr, "error", err)
			return &SyncError{
				Phase:   "handshake",
				Err:     err,
				Retries: max(int(n.client.Stats().Attempts)-1, 0),
			}
		}
		n.link = link
	}

	if err := n.server.Start(); err != nil {
		n.config.logger.Error("Failed to start server", "addr", n.config.addr, "error", err)
		if n.link != nil {
			n.link.Close()
			n.link = nil
		}
		return &ConnectionError{Addr: n.config.addr, Err: err}
	}

	n.started = true
	n.config.logger.Info("Node ready", "role", string(n.info.Role), "addr", n.server.Addr(), "replid", n.info.ReplID)

	return nil
}

// Close stops the server and drops the link to the primary
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}

	n.closed = true

	var firstErr error
	if n.started {
		if err := n.server.Stop(); err != nil {
			n.config.logger.Error("Error stopping server", "error", err)
			firstErr = err
		}
	}

	if n.link != nil {
		if err := n.link.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		n.link = nil
	}

	return firstErr
}

// Addr returns the address the node serves clients on. After Start it is
// the bound address, with the real port when ":0" was configured.
func (n *Node) Addr() string {
	return n.server.Addr()
}

// Role returns whether the node is a primary or a replica
func (n *Node) Role() replication.Role {
	return n.info.Role
}

// ReplicationID returns the node's 40 character replication id
func (n *Node) ReplicationID() string {
	return n.info.ReplID
}

// MasterAddr returns the primary address for a replica, or "" for a primary
func (n *Node) MasterAddr() string {
	return n.config.masterAddr
}

// Storage returns the node's store
func (n *Node) Storage() *storage.Memory {
	return n.storage
}

// ReplicationStats returns the state of the link to the primary. A
// primary reports the zero value.
func (n *Node) ReplicationStats() replication.ReplicationStats {
	if n.client == nil {
		return replication.ReplicationStats{}
	}
	return n.client.Stats()
}

// ServerStats returns connection and command counters
func (n *Node) ServerStats() map[string]interface{} {
	return n.server.Stats()
}
