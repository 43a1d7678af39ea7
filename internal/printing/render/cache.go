package render

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

const pageCountPrefix = "docrender:pagecount:"

// ProbeObserver is notified of every page count lookup.
type ProbeObserver interface {
	ObserveProbe(hit bool)
}

// PageCache memoises page counts by markup hash. Concurrent probes of the same
// markup share one conversion; Redis, when configured, keeps results across
// renders and processes.
type PageCache struct {
	redis    *redis.Client
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	observer ProbeObserver
}

// NewPageCache builds a cache. client may be nil.
func NewPageCache(client *redis.Client, ttl time.Duration, logger *slog.Logger, observer ProbeObserver) *PageCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache{redis: client, ttl: ttl, logger: logger, observer: observer}
}

// Key hashes markup into the cache key.
func Key(markup string) string {
	sum := blake2b.Sum256([]byte(markup))
	return pageCountPrefix + hex.EncodeToString(sum[:])
}

// Count returns the cached count for markup or computes it with fn.
func (c *PageCache) Count(ctx context.Context, markup string, fn func(context.Context) (int, error)) (int, error) {
	if c == nil {
		return fn(ctx)
	}
	key := Key(markup)
	if n, ok := c.lookup(ctx, key); ok {
		c.observe(true)
		return n, nil
	}
	c.observe(false)

	// The conversion is shared by every waiter on key, so one caller
	// giving up must not fail the others.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		n, err := fn(shared)
		if err != nil {
			return 0, err
		}
		c.store(shared, key, n)
		return n, nil
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	}
}

func (c *PageCache) lookup(ctx context.Context, key string) (int, bool) {
	if c.redis == nil {
		return 0, false
	}
	raw, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("page count cache read failed", slog.Any("error", err))
		}
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (c *PageCache) store(ctx context.Context, key string, n int) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, strconv.Itoa(n), c.ttl).Err(); err != nil {
		c.logger.Warn("page count cache write failed", slog.Any("error", err))
	}
}

func (c *PageCache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveProbe(hit)
	}
}
