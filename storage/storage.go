package storage

import "time"

// Store defines the key-value operations the command executor needs
type Store interface {
	// Get returns a copy of the value stored at key. Expired entries
	// are removed and reported as missing.
	Get(key string) ([]byte, bool)

	// Set stores value at key. A positive expiry sets the key to expire
	// after that duration; zero means no expiry. When keepTTL is true
	// an existing key keeps its current expiry.
	Set(key string, value []byte, expiry time.Duration, keepTTL bool)
}

// Clock reports the current time. Tests substitute a manual clock to
// drive expiry deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
