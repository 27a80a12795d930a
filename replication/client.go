package replication

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client connects a replica to its primary and performs the handshake
type Client struct {
	// Configuration
	masterAddr     string
	listeningPort  int
	connectTimeout time.Duration
	maxAttempts    int
	backoff        time.Duration
	maxBackoff     time.Duration

	logger  Logger
	metrics MetricsCollector

	// Statistics
	mu    sync.RWMutex
	stats ReplicationStats
}

// ReplicationStats tracks the state of the link to the primary
type ReplicationStats struct {
	Connected         bool
	MasterAddr        string
	MasterReplID      string
	ReplicationOffset uint64
	LastSyncTime      time.Time
	Attempts          int64
	Failures          int64
}

// Logger interface for replication logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector interface for replication metrics
type MetricsCollector interface {
	RecordSyncDuration(duration time.Duration)
	RecordReconnection()
	RecordError(errorType string)
}

// NewClient creates a client for the primary at masterAddr. listeningPort
// is announced to the primary during the handshake.
func NewClient(masterAddr string, listeningPort int) *Client {
	return &Client{
		masterAddr:     masterAddr,
		listeningPort:  listeningPort,
		connectTimeout: 5 * time.Second,
		maxAttempts:    3,
		backoff:        500 * time.Millisecond,
		maxBackoff:     10 * time.Second,
		logger:         &defaultLogger{},
		stats:          ReplicationStats{MasterAddr: masterAddr},
	}
}

// SetLogger sets the logger
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetMetrics sets the metrics collector
func (c *Client) SetMetrics(metrics MetricsCollector) {
	c.metrics = metrics
}

// SetConnectTimeout sets the dial timeout for each attempt
func (c *Client) SetConnectTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.connectTimeout = timeout
	}
}

// SetRetry sets how many handshake attempts Connect makes and the delay
// before the second one. The delay doubles after every failure.
func (c *Client) SetRetry(maxAttempts int, backoff time.Duration) {
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if backoff >= 0 {
		c.backoff = backoff
	}
}

// MasterAddr returns the primary address
func (c *Client) MasterAddr() string {
	return c.masterAddr
}

// Stats returns current replication statistics
func (c *Client) Stats() ReplicationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// attempt dials the primary once and runs the handshake over the new
// connection
func (c *Client) attempt(ctx context.Context) (*Link, error) {
	c.logger.Debug("Connecting to master", "master", c.masterAddr)

	dialer := &net.Dialer{
		Timeout: c.connectTimeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.masterAddr)
	if err != nil {
		c.recordMetricError("connection")
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	// the whole handshake must finish within the connect timeout
	if err := conn.SetDeadline(time.Now().Add(c.connectTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set handshake deadline: %w", err)
	}

	start := time.Now()
	result, err := NewHandshake(conn, c.listeningPort).Run()
	if err != nil {
		conn.Close()
		c.recordMetricError("handshake")
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to clear handshake deadline: %w", err)
	}

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordSyncDuration(duration)
	}

	c.updateStats(func(s *ReplicationStats) {
		s.Connected = true
		s.MasterReplID = result.ReplID
		s.ReplicationOffset = result.Offset
		s.LastSyncTime = time.Now()
	})

	c.logger.Info("Handshake with master completed",
		"master", c.masterAddr, "master_replid", result.ReplID, "duration", duration)

	return &Link{conn: conn, client: c, Result: result}, nil
}

func (c *Client) updateStats(fn func(*ReplicationStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *Client) recordMetricError(errorType string) {
	if c.metrics != nil {
		c.metrics.RecordError(errorType)
	}
}

// defaultLogger discards everything
type defaultLogger struct{}

func (l *defaultLogger) Debug(msg string, fields ...interface{}) {}

func (l *defaultLogger) Info(msg string, fields ...interface{}) {}

func (l *defaultLogger) Error(msg string, fields ...interface{}) {}
