package command

import "time"

// Command is one validated client request. The set of implementations is
// closed: only the types in this package satisfy it, so a type switch over
// them is exhaustive.
type Command interface {
	// Name returns the upper-case command name
	Name() string

	command()
}

// Section is an INFO section name
type Section string

const (
	// SectionDefault is what INFO without arguments reports
	SectionDefault Section = "default"

	// SectionReplication is master/replica replication information
	SectionReplication Section = "replication"
)

// maxInfoSections bounds the number of sections one INFO call may name
const maxInfoSections = 13

// Ping is PING
type Ping struct{}

// Echo is ECHO message
type Echo struct {
	Message []byte
}

// Get is GET key
type Get struct {
	Key string
}

// Set is SET key value [EX seconds | PX milliseconds | KEEPTTL].
//
// Expiry is zero when no expiry was given. KeepTTL and a non-zero Expiry
// are never both set.
type Set struct {
	Key     string
	Value   []byte
	Expiry  time.Duration
	KeepTTL bool
}

// Info is INFO [section ...]. Sections is never empty; a bare INFO holds
// SectionDefault.
type Info struct {
	Sections []Section
}

// Introspect is COMMAND with any arguments
type Introspect struct{}

// Replconf is REPLCONF with any arguments
type Replconf struct{}

// Psync is PSYNC with any arguments
type Psync struct{}

func (Ping) Name() string       { return "PING" }
func (Echo) Name() string       { return "ECHO" }
func (Get) Name() string        { return "GET" }
func (Set) Name() string        { return "SET" }
func (Info) Name() string       { return "INFO" }
func (Introspect) Name() string { return "COMMAND" }
func (Replconf) Name() string   { return "REPLCONF" }
func (Psync) Name() string      { return "PSYNC" }

func (Ping) command()       {}
func (Echo) command()       {}
func (Get) command()        {}
func (Set) command()        {}
func (Info) command()       {}
func (Introspect) command() {}
func (Replconf) command()   {}
func (Psync) command()      {}
