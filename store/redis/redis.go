package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/kvcache/store"
)

var (
	ErrNilClient   = errors.New("redis store: nil client")
	ErrNoNamespace = errors.New("redis store: clear requires a namespace")
)

const defaultScanCount = 512

type Redis struct {
	rdb         goredis.UniversalClient
	ns          string
	scanCount   int64
	closeClient bool
}

var _ store.Store = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// Namespace prefixes every key as "<ns>:<key>" and scopes Clear.
	// Without it Clear is refused, it would otherwise have to FLUSHDB.
	Namespace   string
	ScanCount   int64 // keys per SCAN page during Clear; 0 => 512
	CloseClient bool  // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	sc := cfg.ScanCount
	if sc <= 0 {
		sc = defaultScanCount
	}
	return &Redis{rdb: cfg.Client, ns: cfg.Namespace, scanCount: sc, closeClient: cfg.CloseClient}, nil
}

func (r *Redis) key(k string) string {
	if r.ns == "" {
		return k
	}
	return r.ns + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // no expiry
	}
	if err := r.rdb.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear deletes "<ns>:*" page by page. Keys written concurrently with Clear
// may survive it. A cluster client is cleared master by master.
func (r *Redis) Clear(ctx context.Context) error {
	if r.ns == "" {
		return ErrNoNamespace
	}
	match := escapeGlob(r.ns) + ":*"
	if cc, ok := r.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
			return r.clearNode(ctx, node, match)
		})
	}
	return r.clearNode(ctx, r.rdb, match)
}

func (r *Redis) clearNode(ctx context.Context, c goredis.Cmdable, match string) error {
	var cursor uint64
	for {
		keys, next, err := c.Scan(ctx, cursor, match, r.scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			// one UNLINK per key: multi-key commands fail across cluster slots
			_, err := c.Pipelined(ctx, func(p goredis.Pipeliner) error {
				for _, k := range keys {
					p.Unlink(ctx, k)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
