package kvcache

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/kvcache/codec"
	"github.com/unkn0wn-root/kvcache/store"
)

// NoExpiry passed as ttl to Set writes an entry without expiry even when
// Options.DefaultTTL is set.
const NoExpiry time.Duration = -1

// ErrorHandler receives every contained failure, always as an *OpError.
// It is a side effect only: it cannot turn a miss back into a hit or make a
// failed Set succeed. It must be safe for concurrent use.
type ErrorHandler func(err error)

// Cache is the typed facade over a store.Store.
//
// Store failures never reach the caller: they are handed to the ErrorHandler
// and turned into a miss, false or nothing. The only errors returned are
// *SerializationError for keys that cannot be encoded.
type Cache[K, V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Get returns (v, true, nil) on hit and (zero, false, nil) on miss or
	// contained failure. A stored zero value is a hit unless ZeroIsMiss.
	Get(ctx context.Context, key K) (v V, ok bool, err error)
	// Set reports whether the store accepted the write. ttl == 0 uses
	// DefaultTTL; ttl < 0 means no expiry.
	Set(ctx context.Context, key K, value V, ttl time.Duration) (bool, error)
	// Delete reports whether an entry was removed.
	Delete(ctx context.Context, key K) (bool, error)
	// Clear removes everything in the store's namespace.
	Clear(ctx context.Context)

	// StoreKey is the key Get/Set/Delete pass to the store.
	StoreKey(key K) (string, error)
}

// Options configure a Cache. Only Store is required; others have sensible
// defaults. Options are copied by New and never change afterwards.
type Options[K, V any] struct {
	// Required
	Store store.Store

	Codec        codec.Codec[V] // nil => codec.JSON[V]
	Normalize    Normalizer[K]  // nil => identity
	Hash         HashFunc       // nil => SHA256
	ErrorHandler ErrorHandler   // nil => LogErrors(Logger)
	Logger       Logger         // nil => NopLogger
	Hooks        Hooks          // nil => NopHooks
	DefaultTTL   time.Duration  // used when Set gets ttl == 0; 0 => no expiry

	// ZeroIsMiss makes Get report stored zero values (0, "", false, nil
	// slices, zero structs) as misses, like truthiness-based caches do.
	ZeroIsMiss bool
	Disabled   bool // default false (enabled)
}

func New[K, V any](opts Options[K, V]) (Cache[K, V], error) {
	return newCache[K, V](opts)
}

// LogErrors is the default ErrorHandler: it logs at Error level and moves on.
func LogErrors(l Logger) ErrorHandler {
	if l == nil {
		l = NopLogger{}
	}
	return func(err error) {
		f := Fields{"err": err}
		var oe *OpError
		if errors.As(err, &oe) {
			f["op"] = string(oe.Op)
			if oe.Key != "" {
				f["key"] = oe.Key
			}
			f["err"] = oe.Err
		}
		l.Error("kvcache operation failed", f)
	}
}
