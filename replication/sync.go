package replication

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Link is an established, handshaken connection to a primary. It stays
// open until Close.
type Link struct {
	Result

	conn   net.Conn
	client *Client
	once   sync.Once
}

// LocalAddr returns the replica side address of the link
func (l *Link) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Close closes the connection to the primary
func (l *Link) Close() error {
	var err error
	l.once.Do(func() {
		err = l.conn.Close()
		l.client.updateStats(func(s *ReplicationStats) {
			s.Connected = false
		})
		l.client.logger.Info("Disconnected from master", "master", l.client.masterAddr)
	})
	return err
}

// Connect dials the primary and performs the handshake. Failed attempts
// are retried with exponential backoff until the configured number of
// attempts is spent or ctx is done; the last error is returned.
func (c *Client) Connect(ctx context.Context) (*Link, error) {
	c.logger.Info("Starting replication handshake", "master", c.masterAddr, "attempts", c.maxAttempts)

	delay := c.backoff
	var lastErr error
	for i := 0; i < c.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.updateStats(func(s *ReplicationStats) {
			s.Attempts++
		})
		if i > 0 && c.metrics != nil {
			c.metrics.RecordReconnection()
		}

		link, err := c.attempt(ctx)
		if err == nil {
			return link, nil
		}

		lastErr = err
		c.updateStats(func(s *ReplicationStats) {
			s.Failures++
		})
		c.logger.Error("Handshake attempt failed", "master", c.masterAddr, "attempt", i+1, "error", err)

		if i < c.maxAttempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			delay *= 2
			if delay > c.maxBackoff {
				delay = c.maxBackoff
			}
		}
	}

	return nil, fmt.Errorf("failed to sync with master after %d attempts: %w", c.maxAttempts, lastErr)
}
