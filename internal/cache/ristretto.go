package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoCache is an in-process Cache with TinyLFU admission and per-entry TTL.
// Cost is measured in bytes of the stored value.
type RistrettoCache struct {
	c *ristretto.Cache
}

// NewRistrettoCache creates a ristretto-backed cache bounded to maxCostBytes.
func NewRistrettoCache(maxCostBytes int64) (*RistrettoCache, error) {
	if maxCostBytes <= 0 {
		return nil, fmt.Errorf("ristretto: max cost must be positive, got %d", maxCostBytes)
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &RistrettoCache{c: c}, nil
}

// Get retrieves a value by key.
func (r *RistrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := r.c.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		r.c.Del(key)
		return nil, ErrCacheMiss
	}
	return b, nil
}

// Set stores a value and waits for the write buffer to drain so the value is
// visible to the next Get.
func (r *RistrettoCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	if !r.c.SetWithTTL(key, valueCopy, int64(len(valueCopy)), ttl) {
		return ErrSetRejected
	}
	r.c.Wait()
	return nil
}

// Ping always succeeds for the in-process store.
func (r *RistrettoCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops ristretto's background goroutines.
func (r *RistrettoCache) Close() error {
	r.c.Close()
	return nil
}

var _ Cache = (*RistrettoCache)(nil)
