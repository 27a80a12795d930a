package replication

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/raniellyferreira/respkv/protocol"
)

// State is a step of the replica side of the handshake
type State int

const (
	StateStart State = iota
	StatePingAck
	StateListeningPortAck
	StateCapaAck
	StateSynced
)

// String returns the state name used in logs and errors
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePingAck:
		return "ping-ack"
	case StateListeningPortAck:
		return "listening-port-ack"
	case StateCapaAck:
		return "capa-ack"
	case StateSynced:
		return "synced"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HandshakeError reports the state a handshake failed in
type HandshakeError struct {
	State State
	Err   error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed in state %s: %v", e.State, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ErrUnexpectedReply is wrapped by a HandshakeError when the primary
// answers a step with anything other than the expected reply
var ErrUnexpectedReply = errors.New("unexpected reply from primary")

// Result is what a completed handshake learned about the primary
type Result struct {
	ReplID string
	Offset uint64
}

// Handshake drives the replica side of the bootstrap exchange with a
// primary:
//
//	PING                            -> +PONG
//	REPLCONF listening-port <port>  -> +OK
//	REPLCONF capa psync2            -> +OK
//	PSYNC ? -1                      -> +FULLRESYNC <replid> <offset>
//
// A Handshake is not safe for concurrent use.
type Handshake struct {
	state  State
	port   int
	reader *protocol.Reader
	writer *protocol.Writer
	result Result
}

// NewHandshake creates a handshake over rw announcing listeningPort as the
// port this replica serves clients on
func NewHandshake(rw io.ReadWriter, listeningPort int) *Handshake {
	return &Handshake{
		state:  StateStart,
		port:   listeningPort,
		reader: protocol.NewReader(rw),
		writer: protocol.NewWriter(rw),
	}
}

// State returns the current state
func (h *Handshake) State() State {
	return h.state
}

// Step sends the request for the current state, checks the reply and
// advances. Once synced, Step does nothing.
func (h *Handshake) Step() error {
	if h.state == StateSynced {
		return nil
	}

	var (
		cmd  string
		args []string
	)
	switch h.state {
	case StateStart:
		cmd = "PING"
	case StatePingAck:
		cmd, args = "REPLCONF", []string{"listening-port", strconv.Itoa(h.port)}
	case StateListeningPortAck:
		cmd, args = "REPLCONF", []string{"capa", "psync2"}
	case StateCapaAck:
		cmd, args = "PSYNC", []string{"?", "-1"}
	default:
		return h.fail(fmt.Errorf("invalid state %d", int(h.state)))
	}

	if err := h.writer.WriteCommand(cmd, args...); err != nil {
		return h.fail(fmt.Errorf("failed to send %s: %w", cmd, err))
	}
	if err := h.writer.Flush(); err != nil {
		return h.fail(fmt.Errorf("failed to send %s: %w", cmd, err))
	}

	reply, err := h.reader.ReadFrame()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return h.fail(fmt.Errorf("failed to read %s reply: %w", cmd, err))
	}

	switch h.state {
	case StateStart:
		err = expectSimple(reply, "PONG")
	case StatePingAck, StateListeningPortAck:
		err = expectSimple(reply, "OK")
	case StateCapaAck:
		h.result, err = parseFullResync(reply)
	}
	if err != nil {
		return h.fail(err)
	}

	h.state++
	return nil
}

// Run steps until the handshake is synced or fails
func (h *Handshake) Run() (Result, error) {
	for h.state != StateSynced {
		if err := h.Step(); err != nil {
			return Result{}, err
		}
	}
	return h.result, nil
}

func (h *Handshake) fail(err error) error {
	return &HandshakeError{State: h.state, Err: err}
}

func expectSimple(reply protocol.Frame, want string) error {
	if reply.Type != protocol.TypeSimpleString || reply.Text() != want {
		return fmt.Errorf("%w: got %s, want +%s", ErrUnexpectedReply, reply, want)
	}
	return nil
}

// parseFullResync accepts any simple reply beginning with FULLRESYNC. The
// replication id and offset that normally follow are read when present
// and left zero otherwise.
func parseFullResync(reply protocol.Frame) (Result, error) {
	if reply.Type != protocol.TypeSimpleString || !strings.HasPrefix(reply.Text(), "FULLRESYNC") {
		return Result{}, fmt.Errorf("%w: got %s, want +FULLRESYNC", ErrUnexpectedReply, reply)
	}

	var result Result
	parts := strings.Fields(reply.Text())
	if len(parts) > 1 {
		result.ReplID = parts[1]
	}
	if len(parts) > 2 {
		if offset, err := strconv.ParseUint(parts[2], 10, 64); err == nil {
			result.Offset = offset
		}
	}
	return result, nil
}
