package storage

import (
	"sync"
	"time"
)

// Memory implements Store with a single map guarded by one mutex.
// Expired keys are removed lazily when they are looked up; there is no
// background sweep.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   Clock
}

// MemoryOption is a function that configures a Memory instance
type MemoryOption func(*Memory)

// WithClock sets the time source used for expiry
func WithClock(clock Clock) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemory creates an empty in-memory store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		clock:   systemClock{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Get retrieves a value by key
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return nil, false
	}

	result := make([]byte, len(e.data))
	copy(result, e.data)
	return result, true
}

// Set stores a value.
//
// The key and value must be non-empty and expiry must not be negative;
// violating that is a programming error and panics.
func (m *Memory) Set(key string, value []byte, expiry time.Duration, keepTTL bool) {
	if key == "" {
		panic("storage: Set with empty key")
	}
	if len(value) == 0 {
		panic("storage: Set with empty value")
	}
	if expiry < 0 {
		panic("storage: Set with negative expiry")
	}

	data := append([]byte(nil), value...)

	m.mu.Lock()
	defer m.mu.Unlock()

	var expireAt time.Time
	if expiry > 0 {
		expireAt = m.clock.Now().Add(expiry)
	}

	if e, ok := m.entries[key]; ok {
		e.data = data
		if !keepTTL {
			e.expireAt = expireAt
		}
		return
	}

	m.entries[key] = &entry{data: data, expireAt: expireAt}
}

// TTL returns the remaining lifetime of key. Persistent keys report -1.
// The second result is false when the key does not exist.
func (m *Memory) TTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return 0, false
	}
	if e.persistent() {
		return -1, true
	}

	ttl := e.expireAt.Sub(m.clock.Now())
	if ttl < 0 {
		ttl = 0
	}
	return ttl, true
}

// Len returns the number of stored entries, including expired entries
// that have not been looked up yet
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// lookup returns the live entry for key, deleting it if it has expired.
// The caller must hold m.mu.
func (m *Memory) lookup(key string) (*entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	if e.expired(m.clock.Now()) {
		delete(m.entries, key)
		return nil, false
	}

	return e, true
}
