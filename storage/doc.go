// Package storage provides the key-value store shared by every client
// connection.
//
// Basic usage:
//
//	store := storage.NewMemory()
//	store.Set("key", []byte("value"), 10*time.Second, false)
//	value, exists := store.Get("key")
//
// The package supports:
//   - Thread-safe operations behind a single lock
//   - Lazy expiration on lookup
//   - Keeping an existing expiry across overwrites (KEEPTTL)
package storage
