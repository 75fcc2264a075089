// Package store defines the key-value boundary used by kvcache.
//
// A Store is the only shared mutable resource behind a kvcache.Cache. The
// cache owns key derivation and value encoding; the store owns persistence,
// expiry and eviction. Implementations MUST be byte-for-byte transparent:
// Get returns exactly the []byte previously passed to Set for a key.
//
// A Store instance is a namespace. Clear removes every entry the instance
// manages and nothing else, so two caches that must be cleared
// independently need two stores (or two redis namespaces).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by adapters that are used after Close.
var ErrClosed = errors.New("store: closed")

// Store is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. ttl <= 0 means no expiry.
	// Returns ok=false when the store rejected the write (e.g. admission under pressure).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Delete removes key and reports whether an entry was present.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every entry in this store's namespace.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
