package kvcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// counter wraps a Func and counts calls to it.
type counter[K, V any] struct {
	n  atomic.Int64
	fn Func[K, V]
}

func (c *counter[K, V]) call(ctx context.Context, k K) (V, error) {
	c.n.Add(1)
	return c.fn(ctx, k)
}

func (c *counter[K, V]) calls() int64 { return c.n.Load() }

func TestCachifyStringKey(t *testing.T) {
	ctx := context.Background()
	f := &counter[string, string]{fn: func(_ context.Context, k string) (string, error) {
		return "value for " + k, nil
	}}
	cached, err := Cachify(newMemStore(), f.call, nil)
	if err != nil {
		t.Fatalf("Cachify: %v", err)
	}

	if v, err := cached(ctx, "key1"); err != nil || v != "value for key1" || f.calls() != 1 {
		t.Fatalf("first call: v=%q err=%v calls=%d", v, err, f.calls())
	}
	if v, err := cached(ctx, "key1"); err != nil || v != "value for key1" || f.calls() != 1 {
		t.Fatalf("cached call: v=%q err=%v calls=%d", v, err, f.calls())
	}
	if v, err := cached(ctx, "key2"); err != nil || v != "value for key2" || f.calls() != 2 {
		t.Fatalf("different key: v=%q err=%v calls=%d", v, err, f.calls())
	}
}

func TestCachifyUpper(t *testing.T) {
	ctx := context.Background()
	f := &counter[string, string]{fn: func(_ context.Context, k string) (string, error) {
		return strings.ToUpper(k), nil
	}}
	cached, err := Cachify(newMemStore(), f.call, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if v, err := cached(ctx, "a"); err != nil || v != "A" {
			t.Fatalf("call %d: v=%q err=%v", i, v, err)
		}
	}
	if f.calls() != 1 {
		t.Fatalf("calls=%d want 1", f.calls())
	}
}

func TestCachifyNormalizedStringKey(t *testing.T) {
	ctx := context.Background()
	f := &counter[string, string]{fn: func(_ context.Context, k string) (string, error) {
		return "value for " + k, nil
	}}
	cached, err := Cachify(newMemStore(), f.call, func(k string) any { return strings.ToUpper(k) })
	if err != nil {
		t.Fatal(err)
	}

	_, _ = cached(ctx, "key1")
	// hit: normalizes to the same key, returns the first result
	if v, _ := cached(ctx, "KEY1"); v != "value for key1" || f.calls() != 1 {
		t.Fatalf("normalized hit: v=%q calls=%d", v, f.calls())
	}
	if v, _ := cached(ctx, "key2"); v != "value for key2" || f.calls() != 2 {
		t.Fatalf("different key: v=%q calls=%d", v, f.calls())
	}
}

func TestCachifyObjectKey(t *testing.T) {
	type objKey struct{ Key string }
	ctx := context.Background()
	f := &counter[objKey, string]{fn: func(_ context.Context, k objKey) (string, error) {
		return k.Key, nil
	}}
	cached, err := Cachify(newMemStore(), f.call, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, _ = cached(ctx, objKey{Key: "key1"})
	if v, _ := cached(ctx, objKey{Key: "key1"}); v != "key1" || f.calls() != 1 {
		t.Fatalf("equal struct key should hit: v=%q calls=%d", v, f.calls())
	}
	if v, _ := cached(ctx, objKey{Key: "key2"}); v != "key2" || f.calls() != 2 {
		t.Fatalf("different struct key: v=%q calls=%d", v, f.calls())
	}
}

func TestCachifyNormalizedObjectKey(t *testing.T) {
	ctx := context.Background()
	f := &counter[nameKey, string]{fn: func(_ context.Context, k nameKey) (string, error) {
		return k.Name, nil
	}}
	cached, err := Cachify(newMemStore(), f.call, func(k nameKey) any {
		return map[string]any{"name": k.Name}
	})
	if err != nil {
		t.Fatal(err)
	}

	_, _ = cached(ctx, nameKey{Name: "key1", Rand: 1})
	if v, _ := cached(ctx, nameKey{Name: "key1", Rand: 2}); v != "key1" || f.calls() != 1 {
		t.Fatalf("Rand should be ignored: v=%q calls=%d", v, f.calls())
	}
}

func TestCachifyRequiresStore(t *testing.T) {
	fn := func(context.Context, string) (int, error) { return 0, nil }
	if _, err := Cachify[string, int](nil, fn, nil); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestWrapCachesZeroResults(t *testing.T) {
	ctx := context.Background()
	f := &counter[string, int]{fn: func(context.Context, string) (int, error) { return 0, nil }}
	c, _ := newTestCache[string, int](t, newMemStore(), nil)
	cached := Wrap(c, f.call)

	_, _ = cached(ctx, "k")
	_, _ = cached(ctx, "k")
	if f.calls() != 1 {
		t.Fatalf("zero result should be cached, calls=%d", f.calls())
	}
}

func TestWrapZeroIsMissRecomputes(t *testing.T) {
	ctx := context.Background()
	f := &counter[string, int]{fn: func(context.Context, string) (int, error) { return 0, nil }}
	c, _ := newTestCache[string, int](t, newMemStore(), func(o *Options[string, int]) {
		o.ZeroIsMiss = true
	})
	cached := Wrap(c, f.call)

	_, _ = cached(ctx, "k")
	_, _ = cached(ctx, "k")
	if f.calls() != 2 {
		t.Fatalf("with ZeroIsMiss zero results are recomputed, calls=%d", f.calls())
	}
}

func TestWrapErrorsPropagateAndAreNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("upstream down")
	fail := true
	ms := newMemStore()
	c, _ := newTestCache[string, string](t, ms, nil)
	cached := Wrap(c, func(_ context.Context, k string) (string, error) {
		if fail {
			return "", boom
		}
		return "ok", nil
	})

	if _, err := cached(ctx, "k"); err != boom {
		t.Fatalf("err=%v want the wrapped function's error unchanged", err)
	}
	if ms.sets != 0 {
		t.Fatalf("failed call was cached")
	}
	fail = false
	if v, err := cached(ctx, "k"); err != nil || v != "ok" {
		t.Fatalf("retry: v=%q err=%v", v, err)
	}
}

func TestWrapBadKeyDoesNotCallFn(t *testing.T) {
	ctx := context.Background()
	f := &counter[map[string]any, string]{fn: func(context.Context, map[string]any) (string, error) {
		return "x", nil
	}}
	c, _ := newTestCache[map[string]any, string](t, newMemStore(), nil)
	cached := Wrap(c, f.call)

	if _, err := cached(ctx, map[string]any{"ch": make(chan int)}); !errors.Is(err, ErrUnserializableKey) {
		t.Fatalf("err=%v want ErrUnserializableKey", err)
	}
	if f.calls() != 0 {
		t.Fatalf("fn called for an unserializable key")
	}
}

func TestWrapStoreOutageFallsThrough(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.failGet = errors.New("down")
	ms.failSet = errors.New("down")
	f := &counter[string, string]{fn: func(_ context.Context, k string) (string, error) { return k, nil }}
	c, sink := newTestCache[string, string](t, ms, nil)
	cached := Wrap(c, f.call)

	for i := 0; i < 3; i++ {
		if v, err := cached(ctx, "k"); err != nil || v != "k" {
			t.Fatalf("call %d: v=%q err=%v", i, v, err)
		}
	}
	if f.calls() != 3 {
		t.Fatalf("calls=%d want 3 while the store is down", f.calls())
	}
	if n := len(sink.all()); n != 6 {
		t.Fatalf("handled %d errors want 6 (get+set per call)", n)
	}
}

func TestWrapWithTTL(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	c, _ := newTestCache[string, string](t, ms, nil)
	cached := WrapWith(c, func(_ context.Context, k string) (string, error) { return k, nil },
		WrapOptions{TTL: 3 * time.Second})

	_, _ = cached(ctx, "k")
	if ms.lastTTL != 3*time.Second {
		t.Fatalf("ttl=%v want 3s", ms.lastTTL)
	}
}

func TestWrapVariadicKeyOnly(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	c, _ := newTestCache[string, string](t, newMemStore(), nil)
	cached := WrapVariadic(c, func(_ context.Context, k string, parts ...string) (string, error) {
		calls.Add(1)
		return k + ":" + strings.Join(parts, ","), nil
	}, WrapOptions{})

	if v, _ := cached(ctx, "k", "a", "b"); v != "k:a,b" {
		t.Fatalf("first call v=%q", v)
	}
	// rest args do not take part in the lookup
	if v, _ := cached(ctx, "k", "c"); v != "k:a,b" || calls.Load() != 1 {
		t.Fatalf("second call v=%q calls=%d", v, calls.Load())
	}
}

func TestConcurrentMissesWithoutCoalesce(t *testing.T) {
	ctx := context.Background()
	const n = 8
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(n)
	f := &counter[string, string]{fn: func(_ context.Context, k string) (string, error) {
		entered.Done()
		<-release
		return k, nil
	}}
	ms := newMemStore()
	c, _ := newTestCache[string, string](t, ms, nil)
	cached := Wrap(c, f.call)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cached(ctx, "k")
		}()
	}
	entered.Wait() // every goroutine missed and is inside fn
	close(release)
	wg.Wait()

	if f.calls() != n || ms.sets != n {
		t.Fatalf("calls=%d sets=%d want %d each", f.calls(), ms.sets, n)
	}
}

func TestCoalesceSharesOneCall(t *testing.T) {
	ctx := context.Background()
	const n = 8
	release := make(chan struct{})
	f := &counter[string, string]{fn: func(_ context.Context, k string) (string, error) {
		<-release
		return "v:" + k, nil
	}}
	ms := newMemStore()
	c, _ := newTestCache[string, string](t, ms, nil)
	cached := WrapWith(c, f.call, WrapOptions{Coalesce: true})

	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cached(ctx, "k")
		}(i)
	}
	// let the goroutines pile up on the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if f.calls() != 1 {
		t.Fatalf("calls=%d want 1", f.calls())
	}
	if ms.sets != 1 {
		t.Fatalf("sets=%d want 1", ms.sets)
	}
	for i, r := range results {
		if r != "v:k" {
			t.Fatalf("result %d = %q", i, r)
		}
	}
}

func TestCoalesceSharesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	c, _ := newTestCache[string, string](t, newMemStore(), nil)
	cached := WrapWith(c, func(context.Context, string) (string, error) { return "", boom },
		WrapOptions{Coalesce: true})

	if _, err := cached(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}
