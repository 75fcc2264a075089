// Package kvcache memoizes over any key-value store.
//
// Keys may be strings or structured values. A Normalizer can project a key
// first, e.g. to drop request-scoped fields. String results are used as the
// store key as is. Anything else is encoded as Core Deterministic CBOR and
// hashed, so structurally equal keys hit the same entry whatever their map
// insertion order.
//
// Components:
//   - store.Store: byte store with TTL (ristretto, bigcache, redis adapters).
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//   - Cache[K, V]: get/set/delete/clear with failures contained.
//   - Wrap / Cachify: key-first function memoization.
//
// Failure policy:
//
//	store error, panic, bad payload -> ErrorHandler, then miss / false / no-op
//	key not serializable            -> returned (*SerializationError)
//	wrapped function error          -> returned unchanged, not cached
//
// Usage:
//
//	c, _ := kvcache.New(kvcache.Options[UserQuery, []User]{
//	    Store:     ristretto.NewDefault(),
//	    Normalize: func(q UserQuery) any { return map[string]any{"org": q.Org, "role": q.Role} },
//	})
//	find := kvcache.Wrap(c, repo.FindUsers)
//	users, err := find(ctx, UserQuery{Org: "acme", Role: "admin", TraceID: id})
package kvcache
