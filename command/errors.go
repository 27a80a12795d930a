package command

import "fmt"

// SyntaxError is returned when a frame does not form a valid command.
// Its message is the exact text sent back to the client.
type SyntaxError struct {
	Message string
}

// Error implements the error interface
func (e *SyntaxError) Error() string {
	return e.Message
}

var (
	errInvalidFrame = &SyntaxError{Message: "ERR invalid frame"}
	errSyntax       = &SyntaxError{Message: "ERR syntax error"}
	errExpireTime   = &SyntaxError{Message: "ERR invalid expire time in 'set' command"}
	errEmptyKey     = &SyntaxError{Message: "ERR empty key"}
	errEmptyValue   = &SyntaxError{Message: "ERR empty value"}
)

func wrongArity(name string) error {
	return &SyntaxError{Message: fmt.Sprintf("ERR wrong number of arguments for '%s' command", name)}
}

func unknownCommand(name string) error {
	return &SyntaxError{Message: fmt.Sprintf("ERR unknown command '%s'", name)}
}
