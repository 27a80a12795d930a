package replication_test

import (
	"errors"
	"io"
	"net"
	"reflect"
	"testing"

	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/replication"
)

// fakePrimary answers each request read from conn with the next reply and
// records the requests it saw
func fakePrimary(t *testing.T, conn net.Conn, replies []protocol.Frame) <-chan []protocol.Frame {
	t.Helper()

	seen := make(chan []protocol.Frame, 1)
	go func() {
		defer conn.Close()

		var requests []protocol.Frame
		defer func() { seen <- requests }()

		reader := protocol.NewReader(conn)
		writer := protocol.NewWriter(conn)
		for _, reply := range replies {
			req, err := reader.ReadFrame()
			if err != nil {
				return
			}
			requests = append(requests, req)

			if err := writer.WriteFrame(reply); err != nil {
				return
			}
			if err := writer.Flush(); err != nil {
				return
			}
		}
	}()
	return seen
}

func validReplies() []protocol.Frame {
	return []protocol.Frame{
		protocol.Simple("PONG"),
		protocol.Simple("OK"),
		protocol.Simple("OK"),
		protocol.Simple("FULLRESYNC 8371445ee0bbb3e5a3bbd1c2e34a8b7f7d5a3c2b 42"),
	}
}

func TestHandshakeRun(t *testing.T) {
	replica, primary := net.Pipe()
	defer replica.Close()

	seen := fakePrimary(t, primary, validReplies())

	h := replication.NewHandshake(replica, 6380)
	if h.State() != replication.StateStart {
		t.Fatalf("State() = %v, want start", h.State())
	}

	result, err := h.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if h.State() != replication.StateSynced {
		t.Errorf("State() = %v, want synced", h.State())
	}

	want := replication.Result{ReplID: "8371445ee0bbb3e5a3bbd1c2e34a8b7f7d5a3c2b", Offset: 42}
	if result != want {
		t.Errorf("Run() = %+v, want %+v", result, want)
	}

	expected := []protocol.Frame{
		protocol.Command("PING"),
		protocol.Command("REPLCONF", "listening-port", "6380"),
		protocol.Command("REPLCONF", "capa", "psync2"),
		protocol.Command("PSYNC", "?", "-1"),
	}
	requests := <-seen
	if len(requests) != len(expected) {
		t.Fatalf("primary saw %d requests, want %d", len(requests), len(expected))
	}
	for i := range expected {
		if !requests[i].Equal(expected[i]) {
			t.Errorf("request %d = %v, want %v", i, requests[i], expected[i])
		}
	}
}

func TestHandshakeStepByStep(t *testing.T) {
	replica, primary := net.Pipe()
	defer replica.Close()

	fakePrimary(t, primary, validReplies())

	h := replication.NewHandshake(replica, 7000)
	states := []replication.State{
		replication.StatePingAck,
		replication.StateListeningPortAck,
		replication.StateCapaAck,
		replication.StateSynced,
	}
	for _, want := range states {
		if err := h.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		if h.State() != want {
			t.Fatalf("State() = %v, want %v", h.State(), want)
		}
	}

	// synced is terminal and sends nothing more
	if err := h.Step(); err != nil {
		t.Errorf("Step() after sync error = %v", err)
	}
}

func TestHandshakeUnexpectedReply(t *testing.T) {
	tests := []struct {
		name    string
		replies []protocol.Frame
		state   replication.State
	}{
		{
			name:    "error instead of pong",
			replies: []protocol.Frame{protocol.Err("ERR denied")},
			state:   replication.StateStart,
		},
		{
			name:    "bulk pong",
			replies: []protocol.Frame{protocol.BulkString("PONG")},
			state:   replication.StateStart,
		},
		{
			name:    "listening port rejected",
			replies: []protocol.Frame{protocol.Simple("PONG"), protocol.Simple("NO")},
			state:   replication.StatePingAck,
		},
		{
			name:    "capa rejected",
			replies: []protocol.Frame{protocol.Simple("PONG"), protocol.Simple("OK"), protocol.Err("ERR no capa")},
			state:   replication.StateListeningPortAck,
		},
		{
			name: "continue instead of fullresync",
			replies: []protocol.Frame{
				protocol.Simple("PONG"), protocol.Simple("OK"), protocol.Simple("OK"), protocol.Simple("CONTINUE"),
			},
			state: replication.StateCapaAck,
		},
		{
			name: "fullresync as bulk string",
			replies: []protocol.Frame{
				protocol.Simple("PONG"), protocol.Simple("OK"), protocol.Simple("OK"),
				protocol.BulkString("FULLRESYNC 8371445ee0bbb3e5a3bbd1c2e34a8b7f7d5a3c2b 0"),
			},
			state: replication.StateCapaAck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replica, primary := net.Pipe()
			defer replica.Close()

			fakePrimary(t, primary, tt.replies)

			_, err := replication.NewHandshake(replica, 6380).Run()

			var herr *replication.HandshakeError
			if !errors.As(err, &herr) {
				t.Fatalf("Run() error = %v, want *HandshakeError", err)
			}
			if herr.State != tt.state {
				t.Errorf("HandshakeError.State = %v, want %v", herr.State, tt.state)
			}
			if !errors.Is(err, replication.ErrUnexpectedReply) {
				t.Errorf("Run() error = %v, want ErrUnexpectedReply", err)
			}
		})
	}
}

func TestHandshakeAcceptsAnyFullResync(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  replication.Result
	}{
		{"short replication id", "FULLRESYNC abc 0", replication.Result{ReplID: "abc"}},
		{"bare fullresync", "FULLRESYNC", replication.Result{}},
		{"negative offset", "FULLRESYNC abc -1", replication.Result{ReplID: "abc"}},
		{"extra fields", "FULLRESYNC abc 7 trailing", replication.Result{ReplID: "abc", Offset: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replica, primary := net.Pipe()
			defer replica.Close()

			fakePrimary(t, primary, []protocol.Frame{
				protocol.Simple("PONG"), protocol.Simple("OK"), protocol.Simple("OK"), protocol.Simple(tt.reply),
			})

			h := replication.NewHandshake(replica, 6380)
			result, err := h.Run()
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if h.State() != replication.StateSynced {
				t.Errorf("State() = %v, want synced", h.State())
			}
			if result != tt.want {
				t.Errorf("Run() = %+v, want %+v", result, tt.want)
			}
		})
	}
}

func TestHandshakePrimaryHangsUp(t *testing.T) {
	replica, primary := net.Pipe()
	defer replica.Close()

	// answer PING, then close before the first REPLCONF reply
	fakePrimary(t, primary, []protocol.Frame{protocol.Simple("PONG")})

	_, err := replication.NewHandshake(replica, 6380).Run()

	var herr *replication.HandshakeError
	if !errors.As(err, &herr) {
		t.Fatalf("Run() error = %v, want *HandshakeError", err)
	}
	if herr.State != replication.StatePingAck {
		t.Errorf("HandshakeError.State = %v, want ping-ack", herr.State)
	}
	if errors.Is(err, replication.ErrUnexpectedReply) {
		t.Errorf("transport failure reported as unexpected reply: %v", err)
	}
}

func TestHandshakeWriteFailure(t *testing.T) {
	replica, primary := net.Pipe()
	primary.Close()
	defer replica.Close()

	_, err := replication.NewHandshake(replica, 6380).Run()
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Run() error = %v, want io.ErrClosedPipe", err)
	}
}

func TestStateString(t *testing.T) {
	names := map[replication.State]string{
		replication.StateStart:            "start",
		replication.StatePingAck:          "ping-ack",
		replication.StateListeningPortAck: "listening-port-ack",
		replication.StateCapaAck:          "capa-ack",
		replication.StateSynced:           "synced",
	}

	got := make(map[replication.State]string, len(names))
	for s := range names {
		got[s] = s.String()
	}
	if !reflect.DeepEqual(got, names) {
		t.Errorf("State names = %v, want %v", got, names)
	}
}
