package protocol

import "fmt"

// ProtocolError represents a malformed RESP frame.
//
// It is recoverable at the connection level unless Fatal is set: the
// Reader skips the remainder of the frame on its next ReadFrame. A Fatal
// error leaves the stream at an unknown position and the connection must
// be closed.
type ProtocolError struct {
	Message string
	Data    []byte
	Fatal   bool
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("protocol error: %s (%q)", e.Message, e.Data)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func protocolErrorf(data []byte, format string, args ...interface{}) error {
	var snapshot []byte
	if len(data) > 0 {
		snapshot = append([]byte(nil), data...)
	}
	return &ProtocolError{
		Message: fmt.Sprintf(format, args...),
		Data:    snapshot,
	}
}

func fatalProtocolErrorf(format string, args ...interface{}) error {
	return &ProtocolError{
		Message: fmt.Sprintf(format, args...),
		Fatal:   true,
	}
}
