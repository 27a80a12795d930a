package storage

import "time"

// entry is a stored value with its optional expiration instant
type entry struct {
	data []byte

	// expireAt is the zero time for persistent keys
	expireAt time.Time
}

// persistent reports whether the entry has no expiry
func (e *entry) persistent() bool {
	return e.expireAt.IsZero()
}

// expired returns true if the entry's expiration instant is before now
func (e *entry) expired(now time.Time) bool {
	return !e.persistent() && e.expireAt.Before(now)
}
