package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/kvcache/store"
)

type Store struct {
	c    *rc.Cache
	cost func(value []byte) int64
}

var _ store.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost returns the admission cost of a value. nil => len(value).
	Cost func(value []byte) int64
}

// DefaultConfig sizes the cache for ~64 MiB of payload bytes.
func DefaultConfig() Config {
	return Config{
		NumCounters: 1e5,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(v []byte) int64 { return int64(len(v)) + 1 }
	}
	return &Store{c: c, cost: cost}, nil
}

// NewDefault is New(DefaultConfig()) and panics on error.
// Handy for tests and examples.
func NewDefault() *Store {
	s, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, isBytes := v.([]byte)
	if !isBytes {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set waits for the write buffers to drain so that a subsequent Get observes
// the value. Ristretto may still refuse admission, reported as ok=false.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok := s.c.SetWithTTL(key, value, s.cost(value), ttl)
	s.c.Wait()
	return ok, nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	_, ok := s.c.Get(key)
	s.c.Del(key)
	return ok, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.c.Clear()
	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto counters when Config.Metrics is true (nil otherwise).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
