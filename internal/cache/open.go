package cache

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a store implementation.
type Options struct {
	Type            string // redis, memory, sqlite, ristretto or bigcache
	TTL             time.Duration
	Redis           RedisConfig
	SQLitePath      string
	CleanupInterval time.Duration
	MaxCostMB       int
}

// New creates the store named by opts.Type.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Type {
	case "redis", "":
		return NewRedisCache(opts.Redis), nil
	case "memory":
		return NewMemoryCache(opts.CleanupInterval), nil
	case "sqlite":
		return NewSQLiteCache(opts.SQLitePath)
	case "ristretto":
		return NewRistrettoCache(int64(opts.MaxCostMB) << 20)
	case "bigcache":
		return NewBigCache(ctx, BigCacheConfig{
			LifeWindow:  opts.TTL,
			CleanWindow: opts.CleanupInterval,
			HardMaxMB:   opts.MaxCostMB,
		})
	default:
		return nil, fmt.Errorf("unknown cache type %q", opts.Type)
	}
}
