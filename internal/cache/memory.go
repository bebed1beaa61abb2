package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds hot entries in process. Traversals hit the same evidence
// schema many times; the memory layer absorbs that.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates an in-process cache. Expired entries are swept at
// twice the default TTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	sweep := 2 * defaultTTL
	if sweep <= 0 {
		sweep = 10 * time.Minute
	}
	return &MemoryCache{cache: gocache.New(defaultTTL, sweep)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value. A zero TTL falls back to the cache default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
