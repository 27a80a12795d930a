package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
)

// Logger interface for server logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Server accepts client connections and serves each one on its own
// goroutine against a shared Executor
type Server struct {
	exec *Executor

	// Server configuration
	addr string

	// Connection management
	listener net.Listener
	clients  sync.Map // map[string]*Client keyed by connection id

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger  Logger
	metrics *Metrics

	// Counters
	connCount    int64
	commandCount int64
	errorCount   int64
	clientCount  int64

	idMu      sync.Mutex
	idEntropy *ulid.MonotonicEntropy
}

// Client is one connected client
type Client struct {
	id     string
	conn   net.Conn
	reader *protocol.Reader
	writer *protocol.Writer
	server *Server

	closeOnce sync.Once
}

// NewServer creates a server that will listen on addr
func NewServer(addr string, exec *Executor) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		exec:      exec,
		addr:      addr,
		ctx:       ctx,
		cancel:    cancel,
		logger:    &nopLogger{},
		idEntropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics sets the metrics collectors; nil disables them
func (s *Server) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// Start binds the listener and begins accepting connections
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.logger.Info("Server listening", "addr", s.listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Stop closes the listener and every client connection, then waits for
// their goroutines to finish
func (s *Server) Stop() error {
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.clients.Range(func(key, value interface{}) bool {
		if client, ok := value.(*Client); ok {
			client.Close()
		}
		return true
	})

	s.wg.Wait()
	s.logger.Info("Server stopped", "addr", s.addr)

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stats returns server statistics
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connected_clients": atomic.LoadInt64(&s.clientCount),
		"total_commands":    atomic.LoadInt64(&s.commandCount),
		"total_errors":      atomic.LoadInt64(&s.errorCount),
		"total_connections": atomic.LoadInt64(&s.connCount),
	}
}

// acceptConnections accepts new client connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return // Server is shutting down
			}
			s.logger.Error("Accept failed", "error", err)
			s.metrics.RecordError("accept")
			continue
		}

		s.handleNewClient(conn)
	}
}

// handleNewClient registers conn and starts its goroutine
func (s *Server) handleNewClient(conn net.Conn) {
	atomic.AddInt64(&s.connCount, 1)
	atomic.AddInt64(&s.clientCount, 1)
	s.metrics.connectionOpened()

	client := &Client{
		id:     s.newConnID(),
		conn:   conn,
		reader: protocol.NewReader(conn),
		writer: protocol.NewWriter(conn),
		server: s,
	}

	s.clients.Store(client.id, client)

	// Stop cancels before closing the registered clients, so a client
	// stored after that sweep sees the cancellation here
	if s.ctx.Err() != nil {
		client.Close()
		return
	}

	s.logger.Debug("Client connected", "conn", client.id, "addr", conn.RemoteAddr().String())

	s.wg.Add(1)
	go client.handle()
}

func (s *Server) newConnID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.idEntropy).String()
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		c.server.clients.Delete(c.id)
		atomic.AddInt64(&c.server.clientCount, -1)
		c.server.metrics.connectionClosed()
	})
}

// handle serves requests one at a time until the client disconnects or
// the connection fails. The next request is not read before the reply to
// the current one has been flushed.
func (c *Client) handle() {
	defer c.server.wg.Done()
	defer c.Close()

	logger := c.server.logger

	for {
		frame, err := c.reader.ReadFrame()
		if err != nil {
			if err == io.EOF {
				logger.Debug("Client disconnected", "conn", c.id)
				return
			}

			var perr *protocol.ProtocolError
			if errors.As(err, &perr) {
				c.server.recordError("protocol")
				if c.writeError("ERR "+perr.Error()) != nil || perr.Fatal {
					return
				}
				continue
			}

			if c.server.ctx.Err() == nil {
				logger.Debug("Client read failed", "conn", c.id, "error", err)
				c.server.recordError("transport")
			}
			return
		}

		if err := c.writeFrame(c.execute(frame)); err != nil {
			if c.server.ctx.Err() == nil {
				logger.Debug("Client write failed", "conn", c.id, "error", err)
				c.server.recordError("transport")
			}
			return
		}
	}
}

// execute turns one request frame into its reply. Client errors become
// error frames.
func (c *Client) execute(frame protocol.Frame) protocol.Frame {
	cmd, err := command.Parse(frame)
	if err != nil {
		c.server.recordError("syntax")
		return protocol.Err(sanitize(err.Error()))
	}

	atomic.AddInt64(&c.server.commandCount, 1)
	start := time.Now()
	reply, err := c.server.exec.Execute(cmd)
	c.server.metrics.recordCommand(cmd.Name(), time.Since(start))

	if err != nil {
		c.server.recordError("not_implemented")
		return protocol.Err(sanitize(err.Error()))
	}
	return reply
}

func (c *Client) writeFrame(f protocol.Frame) error {
	if err := c.writer.WriteFrame(f); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *Client) writeError(s string) error {
	if err := c.writer.WriteError(sanitize(s)); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (s *Server) recordError(errorType string) {
	atomic.AddInt64(&s.errorCount, 1)
	s.metrics.RecordError(errorType)
}

// sanitize removes line breaks, which would end an error line early
func sanitize(msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.ReplaceAll(msg, "\r", " ")
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...interface{}) {}
func (nopLogger) Info(msg string, fields ...interface{})  {}
func (nopLogger) Error(msg string, fields ...interface{}) {}
