package respkv

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raniellyferreira/respkv/config"
	"github.com/raniellyferreira/respkv/replication"
	"github.com/raniellyferreira/respkv/storage"
)

// nodeConfig holds the configuration for a Node
type nodeConfig struct {
	// Listener
	addr string

	// Replication; empty masterAddr means primary
	masterAddr     string
	replID         string
	connectTimeout time.Duration
	maxAttempts    int
	backoff        time.Duration

	// Observability
	logger   Logger
	registry prometheus.Registerer

	clock storage.Clock
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *nodeConfig {
	d := config.Default()
	return &nodeConfig{
		addr:           d.Addr(),
		connectTimeout: d.Replication.ConnectTimeout,
		maxAttempts:    d.Replication.MaxAttempts,
		backoff:        d.Replication.Backoff,
		logger:         &defaultLogger{},
	}
}

// listeningPort returns the port announced to the primary
func (c *nodeConfig) listeningPort() (int, error) {
	_, port, err := net.SplitHostPort(c.addr)
	if err != nil {
		return 0, fmt.Errorf("%w: listen address %q: %v", ErrInvalidConfig, c.addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, fmt.Errorf("%w: listen address %q: invalid port", ErrInvalidConfig, c.addr)
	}
	return n, nil
}

// Option represents a configuration option for a Node
type Option func(*nodeConfig) error

// WithAddr sets the address the node serves clients on
//
// Example:
//
//	WithAddr("127.0.0.1:6379")
//	WithAddr(":0") // any free port
func WithAddr(addr string) Option {
	return func(c *nodeConfig) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: listen address %q: %v", ErrInvalidConfig, addr, err)
		}
		c.addr = addr
		return nil
	}
}

// WithReplicaOf runs the node as a replica of the primary at addr, given
// as "host:port" or "host port". An empty addr keeps the node a primary.
//
// Example:
//
//	WithReplicaOf("localhost 6379")
func WithReplicaOf(addr string) Option {
	return func(c *nodeConfig) error {
		if addr == "" {
			c.masterAddr = ""
			return nil
		}
		normalized, err := config.ParseReplicaOf(addr)
		if err != nil {
			return &ConnectionError{Addr: addr, Err: ErrInvalidConfig}
		}
		c.masterAddr = normalized
		return nil
	}
}

// WithLogger sets a custom logger for the node
func WithLogger(logger Logger) Option {
	return func(c *nodeConfig) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics registers the node's Prometheus collectors with registry
//
// Example:
//
//	WithMetrics(prometheus.DefaultRegisterer)
func WithMetrics(registry prometheus.Registerer) Option {
	return func(c *nodeConfig) error {
		c.registry = registry
		return nil
	}
}

// WithConnectTimeout sets how long each handshake attempt may take,
// dial included
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *nodeConfig) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.connectTimeout = timeout
		return nil
	}
}

// WithHandshakeRetries sets how many handshake attempts are made before
// Start gives up, and the delay before the second attempt. The delay
// doubles after every failure.
func WithHandshakeRetries(attempts int, backoff time.Duration) Option {
	return func(c *nodeConfig) error {
		if attempts < 1 || backoff < 0 {
			return ErrInvalidConfig
		}
		c.maxAttempts = attempts
		c.backoff = backoff
		return nil
	}
}

// WithReplicationID fixes the replication id instead of generating one.
// The id must be 40 alphanumeric characters.
func WithReplicationID(id string) Option {
	return func(c *nodeConfig) error {
		if !replication.ValidReplicationID(id) {
			return fmt.Errorf("%w: replication id %q", ErrInvalidConfig, id)
		}
		c.replID = id
		return nil
	}
}

// WithClock sets the time source used for key expiry
func WithClock(clock storage.Clock) Option {
	return func(c *nodeConfig) error {
		if clock == nil {
			return ErrInvalidConfig
		}
		c.clock = clock
		return nil
	}
}

// WithConfig applies a loaded configuration file. Options after it
// override its values.
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}

		c.addr = cfg.Addr()
		c.connectTimeout = cfg.Replication.ConnectTimeout
		c.maxAttempts = cfg.Replication.MaxAttempts
		c.backoff = cfg.Replication.Backoff

		return WithReplicaOf(cfg.Replication.ReplicaOf)(c)
	}
}
