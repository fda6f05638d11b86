// Package memcache is the in-process CacheService used when Valkey is disabled.
package memcache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

// Cache implements ports.CacheService on top of go-cache.
type Cache struct {
	items *cache.Cache
}

// New creates a cache whose entries default to defaultTTL and are swept every cleanup.
func New(defaultTTL, cleanup time.Duration) *Cache {
	return &Cache{items: cache.New(defaultTTL, cleanup)}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Set stores a copy of value. A non-positive TTL uses the cache default.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := cache.DefaultExpiration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	b := make([]byte, len(value))
	copy(b, value)
	c.items.Set(key, b, ttl)
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Len() int { return c.items.ItemCount() }
