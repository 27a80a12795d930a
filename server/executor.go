package server

import (
	"errors"
	"fmt"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/replication"
	"github.com/raniellyferreira/respkv/storage"
)

// ErrNotImplemented is returned for recognized requests that have no
// behavior behind them, such as INFO without a section
var ErrNotImplemented = errors.New("ERR not implemented")

// Executor runs validated commands against the store and produces the
// reply frame for each one
type Executor struct {
	store storage.Store
	repl  *replication.Info
}

// NewExecutor creates an executor over store reporting repl as this node's
// replication identity
func NewExecutor(store storage.Store, repl *replication.Info) *Executor {
	return &Executor{
		store: store,
		repl:  repl,
	}
}

// Execute runs cmd and returns its reply.
//
// The only error is ErrNotImplemented; it is meant to be sent to the client
// as an error reply.
func (e *Executor) Execute(cmd command.Command) (protocol.Frame, error) {
	switch c := cmd.(type) {
	case command.Ping:
		return protocol.Simple("PONG"), nil
	case command.Echo:
		return protocol.Bulk(c.Message), nil
	case command.Get:
		value, ok := e.store.Get(c.Key)
		if !ok {
			return protocol.Null(), nil
		}
		return protocol.Bulk(value), nil
	case command.Set:
		e.store.Set(c.Key, c.Value, c.Expiry, c.KeepTTL)
		return protocol.Simple("OK"), nil
	case command.Info:
		return e.info(c.Sections)
	case command.Introspect:
		return protocol.Array(), nil
	case command.Replconf:
		return protocol.Simple("OK"), nil
	case command.Psync:
		return protocol.Simple(fmt.Sprintf("FULLRESYNC %s %d", e.repl.ReplID, e.repl.Offset)), nil
	default:
		return protocol.Frame{}, ErrNotImplemented
	}
}

// info renders the requested sections. Repeated sections are reported once.
func (e *Executor) info(sections []command.Section) (protocol.Frame, error) {
	for _, section := range sections {
		if section != command.SectionReplication {
			return protocol.Frame{}, ErrNotImplemented
		}
	}
	return protocol.BulkString(e.repl.Report()), nil
}
