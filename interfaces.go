package respkv

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Logger interface for custom logging implementations. Fields are passed
// as alternating key/value pairs. hclog.Logger satisfies it.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...interface{})

	// Info logs an info message with optional fields
	Info(msg string, fields ...interface{})

	// Error logs an error message with optional fields
	Error(msg string, fields ...interface{})
}

// NewLogger creates a structured logger writing to stderr. level is one
// of trace, debug, info, warn or error; format is "text" or "json".
func NewLogger(level, format string) Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "respkv",
		Level:      lvl,
		Output:     w,
		JSONFormat: strings.EqualFold(format, "json"),
	})
}

// defaultLogger discards everything
type defaultLogger struct{}

func (l *defaultLogger) Debug(msg string, fields ...interface{}) {}

func (l *defaultLogger) Info(msg string, fields ...interface{}) {}

func (l *defaultLogger) Error(msg string, fields ...interface{}) {}
