package kvcache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/kvcache/store"
)

// Func is a key-first function whose results can be cached.
type Func[K, V any] func(ctx context.Context, key K) (V, error)

// VariadicFunc is a key-first function with extra arguments. Only key takes
// part in the cache lookup; the extra arguments of the call that misses are
// the ones that produce the cached value.
type VariadicFunc[K, A, V any] func(ctx context.Context, key K, args ...A) (V, error)

type WrapOptions struct {
	// TTL for stored results. 0 => the cache's DefaultTTL.
	TTL time.Duration
	// Coalesce lets concurrent misses on one store key share a single call.
	// Off by default: every concurrent miss calls through and writes, the
	// last write wins.
	Coalesce bool
}

// Wrap returns fn with results cached in c under key.
//
// A hit returns the cached value without calling fn. A miss calls fn, stores
// its result once and returns it. Errors from fn are returned unchanged and
// nothing is cached. A key that cannot be serialized fails before fn runs.
func Wrap[K, V any](c Cache[K, V], fn Func[K, V]) Func[K, V] {
	return WrapWith(c, fn, WrapOptions{})
}

func WrapWith[K, V any](c Cache[K, V], fn Func[K, V], opts WrapOptions) Func[K, V] {
	m := newMemo(c, opts)
	return func(ctx context.Context, key K) (V, error) {
		return m.call(ctx, key, func(ctx context.Context) (V, error) {
			return fn(ctx, key)
		})
	}
}

func WrapVariadic[K, A, V any](c Cache[K, V], fn VariadicFunc[K, A, V], opts WrapOptions) VariadicFunc[K, A, V] {
	m := newMemo(c, opts)
	return func(ctx context.Context, key K, args ...A) (V, error) {
		return m.call(ctx, key, func(ctx context.Context) (V, error) {
			return fn(ctx, key, args...)
		})
	}
}

// Cachify wraps fn with a cache of its own over s. normalize may be nil.
func Cachify[K, V any](s store.Store, fn Func[K, V], normalize Normalizer[K]) (Func[K, V], error) {
	c, err := New(Options[K, V]{Store: s, Normalize: normalize})
	if err != nil {
		return nil, err
	}
	return Wrap(c, fn), nil
}

type memo[K, V any] struct {
	c     Cache[K, V]
	opts  WrapOptions
	group *singleflight.Group // nil unless Coalesce
}

func newMemo[K, V any](c Cache[K, V], opts WrapOptions) *memo[K, V] {
	m := &memo[K, V]{c: c, opts: opts}
	if opts.Coalesce {
		m.group = new(singleflight.Group)
	}
	return m
}

func (m *memo[K, V]) call(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	var zero V
	v, ok, err := m.c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		return v, nil
	}
	if m.group == nil {
		return m.fill(ctx, key, load)
	}

	k, err := m.c.StoreKey(key)
	if err != nil {
		return zero, err
	}
	// the leader's ctx drives the shared call
	res, err, _ := m.group.Do(k, func() (any, error) {
		return m.fill(ctx, key, load)
	})
	if err != nil {
		return zero, err
	}
	v, _ = res.(V)
	return v, nil
}

func (m *memo[K, V]) fill(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	// Set only errors on key serialization, which Get already ruled out
	_, _ = m.c.Set(ctx, key, v, m.opts.TTL)
	return v, nil
}
