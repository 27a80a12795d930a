package protocol_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/raniellyferreira/respkv/protocol"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected protocol.Frame
	}{
		{
			name:     "simple string",
			input:    "+OK\r\n",
			expected: protocol.Simple("OK"),
		},
		{
			name:     "empty simple string",
			input:    "+\r\n",
			expected: protocol.Simple(""),
		},
		{
			name:     "error",
			input:    "-ERR unknown command\r\n",
			expected: protocol.Err("ERR unknown command"),
		},
		{
			name:     "integer",
			input:    ":42\r\n",
			expected: protocol.Integer(42),
		},
		{
			name:     "max integer",
			input:    ":18446744073709551615\r\n",
			expected: protocol.Integer(1<<64 - 1),
		},
		{
			name:     "bulk string",
			input:    "$5\r\nhello\r\n",
			expected: protocol.BulkString("hello"),
		},
		{
			name:     "bulk string with CRLF inside",
			input:    "$4\r\na\r\nb\r\n",
			expected: protocol.BulkString("a\r\nb"),
		},
		{
			name:     "empty bulk string",
			input:    "$0\r\n\r\n",
			expected: protocol.BulkString(""),
		},
		{
			name:     "null bulk string",
			input:    "$-1\r\n",
			expected: protocol.Null(),
		},
		{
			name:     "command array",
			input:    "*2\r\n$4\r\nECHO\r\n$3\r\nhey\r\n",
			expected: protocol.Command("ECHO", "hey"),
		},
		{
			name:     "empty array",
			input:    "*0\r\n",
			expected: protocol.Array(),
		},
		{
			name:     "mixed reply array",
			input:    "*3\r\n+OK\r\n:7\r\n$-1\r\n",
			expected: protocol.Array(protocol.Simple("OK"), protocol.Integer(7), protocol.Null()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := protocol.NewReader(strings.NewReader(tt.input))
			frame, err := reader.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}

			if !frame.Equal(tt.expected) {
				t.Errorf("ReadFrame() = %v (%s), want %v (%s)", frame, frame.Type, tt.expected, tt.expected.Type)
			}

			if _, err := reader.ReadFrame(); err != io.EOF {
				t.Errorf("ReadFrame() after last frame error = %v, want io.EOF", err)
			}
		})
	}
}

func TestReadFrameOneByteAtATime(t *testing.T) {
	input := "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n+PONG\r\n"
	reader := protocol.NewReader(iotest.OneByteReader(strings.NewReader(input)))

	frame, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !frame.Equal(protocol.Command("SET", "key", "value")) {
		t.Errorf("ReadFrame() = %v, want [SET, key, value]", frame)
	}

	frame, err = reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !frame.Equal(protocol.Simple("PONG")) {
		t.Errorf("ReadFrame() = %v, want PONG", frame)
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	reader := protocol.NewReader(strings.NewReader(""))

	_, err := reader.ReadFrame()
	if err != io.EOF {
		t.Fatalf("ReadFrame() on empty stream error = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	inputs := []string{
		"*2\r\n$4\r\nECHO\r\n",
		"*2\r\n$4\r\nEC",
		"$5\r\nhel",
		"$5\r\nhello",
		"+OK",
		"*",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			reader := protocol.NewReader(strings.NewReader(input))
			_, err := reader.ReadFrame()
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("ReadFrame(%q) error = %v, want io.ErrUnexpectedEOF", input, err)
			}
		})
	}
}

func TestReadFrameSyntaxErrors(t *testing.T) {
	inputs := []struct {
		name  string
		input string
	}{
		{"unknown prefix", "!oops\r\n"},
		{"empty array length", "*\r\n"},
		{"negative array length", "*-1\r\n"},
		{"non numeric array length", "*x\r\n"},
		{"empty bulk length", "$\r\n"},
		{"non numeric bulk length", "$abc\r\n"},
		{"negative bulk length", "$-2\r\n"},
		{"missing CR in length", "$3\nfoo\r\n"},
		{"missing CRLF after bulk", "$3\r\nfooXY"},
		{"signed integer", ":-5\r\n"},
		{"integer overflow", ":18446744073709551616\r\n"},
		{"nested array", "*1\r\n*1\r\n$1\r\na\r\n"},
		{"oversized bulk", "$999999999999\r\n"},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			reader := protocol.NewReader(strings.NewReader(tt.input))
			_, err := reader.ReadFrame()

			var perr *protocol.ProtocolError
			if !errors.As(err, &perr) {
				t.Errorf("ReadFrame(%q) error = %v, want *ProtocolError", tt.input, err)
			}
		})
	}
}

func TestReaderRecoversAfterProtocolError(t *testing.T) {
	reader := protocol.NewReader(strings.NewReader("$x\r\n*1\r\n$4\r\nPING\r\n"))

	if _, err := reader.ReadFrame(); err == nil {
		t.Fatal("ReadFrame() expected protocol error")
	}

	frame, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after error = %v", err)
	}
	if !frame.Equal(protocol.Command("PING")) {
		t.Errorf("ReadFrame() = %v, want [PING]", frame)
	}
}

func TestReaderSkipsRestOfMalformedFrame(t *testing.T) {
	ping := "*1\r\n$4\r\nPING\r\n"

	tests := []struct {
		name  string
		input string
	}{
		{"unknown prefix inside array", "*2\r\n$3\r\nGET\r\nX\r\n"},
		{"inline text", "hello world\r\n"},
		{"bad first element", "*3\r\n$x\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"},
		{"missing CRLF after bulk in array", "*2\r\n$3\r\nGETXY\r\n$1\r\nk\r\n"},
		{"nested array element", "*2\r\n*1\r\n$1\r\na\r\n"},
		{"stray line feed", "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := protocol.NewReader(strings.NewReader(tt.input + ping))

			_, err := reader.ReadFrame()
			var perr *protocol.ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("ReadFrame() error = %v, want *ProtocolError", err)
			}
			if perr.Fatal {
				t.Errorf("ProtocolError.Fatal = true for %q", tt.input)
			}

			frame, err := reader.ReadFrame()
			if err != nil {
				t.Fatalf("second ReadFrame() error = %v, want the PING frame", err)
			}
			if !frame.Equal(protocol.Command("PING")) {
				t.Errorf("second ReadFrame() = %v, want [PING]", frame)
			}

			if _, err := reader.ReadFrame(); err != io.EOF {
				t.Errorf("third ReadFrame() error = %v, want io.EOF", err)
			}
		})
	}
}

func TestReaderOversizedLengthIsFatal(t *testing.T) {
	for _, input := range []string{"$999999999999\r\n", "*99999999\r\n"} {
		reader := protocol.NewReader(strings.NewReader(input))

		_, err := reader.ReadFrame()
		var perr *protocol.ProtocolError
		if !errors.As(err, &perr) {
			t.Fatalf("ReadFrame(%q) error = %v, want *ProtocolError", input, err)
		}
		if !perr.Fatal {
			t.Errorf("ReadFrame(%q) ProtocolError.Fatal = false", input)
		}
	}
}

func TestWriteFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    protocol.Frame
		expected string
	}{
		{"simple string", protocol.Simple("OK"), "+OK\r\n"},
		{"error", protocol.Err("ERR syntax error"), "-ERR syntax error\r\n"},
		{"integer", protocol.Integer(42), ":42\r\n"},
		{"bulk string", protocol.BulkString("hello"), "$5\r\nhello\r\n"},
		{"empty bulk string", protocol.BulkString(""), "$0\r\n\r\n"},
		{"null", protocol.Null(), "$-1\r\n"},
		{"empty array", protocol.Array(), "*0\r\n"},
		{
			"array",
			protocol.Array(protocol.BulkString("a"), protocol.Integer(1), protocol.Null()),
			"*3\r\n$1\r\na\r\n:1\r\n$-1\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writer := protocol.NewWriter(&buf)

			if err := writer.WriteFrame(tt.frame); err != nil {
				t.Fatalf("WriteFrame() error = %v", err)
			}

			if buf.Len() != 0 {
				t.Errorf("WriteFrame() wrote %d bytes before Flush", buf.Len())
			}

			if err := writer.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}

			if buf.String() != tt.expected {
				t.Errorf("WriteFrame() = %q, want %q", buf.String(), tt.expected)
			}
		})
	}
}

func TestWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	writer := protocol.NewWriter(&buf)

	if err := writer.WriteCommand("REPLCONF", "listening-port", "6380"); err != nil {
		t.Fatalf("WriteCommand() error = %v", err)
	}
	writer.Flush()

	expected := "*3\r\n$8\r\nREPLCONF\r\n$14\r\nlistening-port\r\n$4\r\n6380\r\n"
	if buf.String() != expected {
		t.Errorf("WriteCommand() = %q, want %q", buf.String(), expected)
	}
}

func TestRoundTrip(t *testing.T) {
	frames := []protocol.Frame{
		protocol.Simple("PONG"),
		protocol.Simple("FULLRESYNC 8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb 0"),
		protocol.Err("ERR unknown command 'foo'"),
		protocol.Integer(0),
		protocol.Integer(1<<64 - 1),
		protocol.BulkString("value"),
		protocol.Bulk([]byte{0x00, 0xff, '\r', '\n'}),
		protocol.BulkString(""),
		protocol.Null(),
		protocol.Array(),
		protocol.Command("SET", "k", "v", "PX", "100"),
		protocol.Array(protocol.Simple("a"), protocol.Err("b"), protocol.Integer(3), protocol.Null()),
	}

	var buf bytes.Buffer
	writer := protocol.NewWriter(&buf)
	for _, f := range frames {
		if err := writer.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame(%v) error = %v", f, err)
		}
	}
	writer.Flush()

	reader := protocol.NewReader(&buf)
	for _, want := range frames {
		got, err := reader.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip = %v (%s), want %v (%s)", got, got.Type, want, want.Type)
		}
	}

	if _, err := reader.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestFrameString(t *testing.T) {
	tests := []struct {
		name     string
		frame    protocol.Frame
		expected string
	}{
		{"simple string", protocol.Simple("OK"), "OK"},
		{"integer", protocol.Integer(42), "42"},
		{"null", protocol.Null(), "(nil)"},
		{"error", protocol.Err("ERR unknown command"), "ERR unknown command"},
		{"array", protocol.Command("GET", "k"), "[GET, k]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.frame.String(); result != tt.expected {
				t.Errorf("String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestFrameEqualDistinguishesNullFromEmpty(t *testing.T) {
	if protocol.Null().Equal(protocol.BulkString("")) {
		t.Error("Null() should not equal an empty bulk string")
	}
	if protocol.Simple("OK").Equal(protocol.BulkString("OK")) {
		t.Error("simple and bulk strings with the same payload should differ")
	}
}
