package kvcache

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/unkn0wn-root/kvcache/codec"
	"github.com/unkn0wn-root/kvcache/store"
)

type cache[K, V any] struct {
	store     store.Store
	codec     codec.Codec[V]
	normalize Normalizer[K]
	hash      HashFunc
	onError   ErrorHandler
	log       Logger
	hooks     Hooks

	enabled    bool
	zeroIsMiss bool
	defaultTTL time.Duration
}

func newCache[K, V any](opts Options[K, V]) (*cache[K, V], error) {
	if opts.Store == nil {
		return nil, errors.New("kvcache: store is required")
	}

	c := &cache[K, V]{
		store:      opts.Store,
		normalize:  opts.Normalize,
		hash:       opts.Hash,
		enabled:    !opts.Disabled,
		zeroIsMiss: opts.ZeroIsMiss,
		defaultTTL: opts.DefaultTTL,
	}

	// defaults
	c.codec = coalesce[codec.Codec[V]](opts.Codec, codec.JSON[V]{})
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if c.hash == nil {
		c.hash = SHA256
	}
	if opts.ErrorHandler != nil {
		c.onError = opts.ErrorHandler
	} else {
		c.onError = LogErrors(c.log)
	}
	return c, nil
}

func (c *cache[K, V]) Enabled() bool { return c.enabled }

func (c *cache[K, V]) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *cache[K, V]) StoreKey(key K) (string, error) {
	return StoreKey(key, c.normalize, c.hash)
}

func (c *cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if !c.enabled {
		return zero, false, nil
	}
	k, err := c.StoreKey(key)
	if err != nil {
		return zero, false, err
	}
	v, ok := c.get(ctx, k)
	return v, ok, nil
}

func (c *cache[K, V]) get(ctx context.Context, k string) (V, bool) {
	var zero V
	var (
		raw []byte
		ok  bool
	)
	err := guard(func() (err error) {
		raw, ok, err = c.store.Get(ctx, k)
		return err
	})
	if err != nil {
		c.fail(OpGet, k, err)
		return zero, false
	}
	if !ok {
		c.hooks.Miss(k)
		return zero, false
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.fail(OpDecode, k, err)
		c.selfHeal(ctx, k, "value_decode")
		return zero, false
	}
	if c.zeroIsMiss && isZero(v) {
		c.hooks.Miss(k)
		return zero, false
	}
	c.hooks.Hit(k)
	return v, true
}

func (c *cache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	k, err := c.StoreKey(key)
	if err != nil {
		return false, err
	}
	return c.set(ctx, k, value, ttl), nil
}

func (c *cache[K, V]) set(ctx context.Context, k string, value V, ttl time.Duration) bool {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		c.fail(OpEncode, k, err)
		return false
	}
	var ok bool
	err = guard(func() (err error) {
		ok, err = c.store.Set(ctx, k, payload, ttl)
		return err
	})
	if err != nil {
		c.fail(OpSet, k, err)
		return false
	}
	if !ok {
		c.log.Debug("set rejected by store", Fields{"key": k})
		c.hooks.SetRejected(k)
	}
	return ok
}

func (c *cache[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	k, err := c.StoreKey(key)
	if err != nil {
		return false, err
	}
	var removed bool
	err = guard(func() (err error) {
		removed, err = c.store.Delete(ctx, k)
		return err
	})
	if err != nil {
		c.fail(OpDelete, k, err)
		return false, nil
	}
	return removed, nil
}

func (c *cache[K, V]) Clear(ctx context.Context) {
	if !c.enabled {
		return
	}
	if err := guard(func() error { return c.store.Clear(ctx) }); err != nil {
		c.fail(OpClear, "", err)
	}
}

func (c *cache[K, V]) fail(op Op, k string, err error) {
	c.onError(&OpError{Op: op, Key: k, Err: err})
}

// selfHeal drops an entry this cache cannot read so the next Set replaces it
// instead of every Get failing on it.
func (c *cache[K, V]) selfHeal(ctx context.Context, k, reason string) {
	err := guard(func() error {
		_, err := c.store.Delete(ctx, k)
		return err
	})
	if err != nil {
		c.fail(OpDelete, k, err)
		return
	}
	c.log.Debug("dropped unreadable entry", Fields{"key": k, "reason": reason})
	c.hooks.SelfHeal(k, reason)
}

// guard runs a store call and turns a panic into a *PanicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

func isZero[V any](v V) bool {
	rv := reflect.ValueOf(&v).Elem()
	return rv.IsZero()
}
