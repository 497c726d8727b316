package cache

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCacheConfig holds settings for the bigcache store.
type BigCacheConfig struct {
	// LifeWindow is the TTL applied to every entry; bigcache has no per-entry TTL.
	LifeWindow  time.Duration
	CleanWindow time.Duration
	HardMaxMB   int
}

// BigCache is an in-process Cache built on allegro/bigcache.
// The ttl argument of Set is ignored in favour of the configured LifeWindow.
type BigCache struct {
	c *bigcache.BigCache
}

// NewBigCache creates a bigcache-backed store.
func NewBigCache(ctx context.Context, cfg BigCacheConfig) (*BigCache, error) {
	conf := bigcache.DefaultConfig(cfg.LifeWindow)
	conf.Shards = bigCacheShards(cfg.HardMaxMB)
	conf.MaxEntriesInWindow = 1024
	conf.MaxEntrySize = 64 * 1024
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.HardMaxMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxMB
	}

	c, err := bigcache.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c}, nil
}

// minShardMB is the smallest per-shard budget; an entry larger than its
// shard's budget is rejected, and the full article list is one entry.
const minShardMB = 16

// bigCacheShards picks a power-of-two shard count that leaves every shard at
// least minShardMB under the hard limit. No limit means the default 16 shards.
func bigCacheShards(hardMaxMB int) int {
	if hardMaxMB <= 0 {
		return 16
	}
	shards := 1
	for shards < 16 && hardMaxMB/(shards*2) >= minShardMB {
		shards *= 2
	}
	return shards
}

// Get retrieves a value by key.
func (b *BigCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.c.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set stores a value for the configured life window.
func (b *BigCache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return b.c.Set(key, value)
}

// Ping always succeeds for the in-process store.
func (b *BigCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (b *BigCache) Close() error {
	return b.c.Close()
}

var _ Cache = (*BigCache)(nil)
