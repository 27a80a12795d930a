package replication

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Role is the replication role of a node, spelled the way INFO reports it
type Role string

const (
	RolePrimary Role = "master"
	RoleReplica Role = "slave"
)

// ReplicationIDLength is the length of a generated replication id
const ReplicationIDLength = 40

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Info is the replication identity of a node. It is fixed at startup and
// safe to share between goroutines.
type Info struct {
	Role   Role
	ReplID string
	Offset uint64
}

// NewInfo creates replication info for role with a freshly generated id
func NewInfo(role Role) (*Info, error) {
	id, err := NewReplicationID()
	if err != nil {
		return nil, err
	}
	return &Info{Role: role, ReplID: id}, nil
}

// NewReplicationID returns a random 40 character alphanumeric id
func NewReplicationID() (string, error) {
	var (
		id  = make([]byte, 0, ReplicationIDLength)
		buf [64]byte
	)

	for len(id) < ReplicationIDLength {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("failed to generate replication id: %w", err)
		}
		for _, b := range buf {
			// reject the tail of the byte range so every symbol is equally likely
			if int(b) >= 256-256%len(idAlphabet) {
				continue
			}
			id = append(id, idAlphabet[int(b)%len(idAlphabet)])
			if len(id) == ReplicationIDLength {
				break
			}
		}
	}

	return string(id), nil
}

// ValidReplicationID reports whether id has the shape NewReplicationID produces
func ValidReplicationID(id string) bool {
	if len(id) != ReplicationIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(idAlphabet, id[i]) < 0 {
			return false
		}
	}
	return true
}

// Report renders the replication section of INFO
func (i *Info) Report() string {
	var sb strings.Builder
	sb.WriteString("# Replication\r\n")
	fmt.Fprintf(&sb, "role:%s\r\n", i.Role)
	fmt.Fprintf(&sb, "master_replid:%s\r\n", i.ReplID)
	fmt.Fprintf(&sb, "master_repl_offset:%d\r\n", i.Offset)
	return sb.String()
}
