package forecastcache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// l1Store is the L1 layer's storage surface; l1Cache (in-memory LRU) and
// l1MemcachedCache (cache.backend == "memcached") both implement it.
type l1Store interface {
	get(key string) (model.ForecastCacheEntry, bool)
	set(key string, entry model.ForecastCacheEntry)
	size() int
}

// l1Cache is the in-memory LRU layer. Bounded by max_size with lazy TTL
// expiry, matching spec §4.1. Using hashicorp/golang-lru's expirable LRU
// instead of the teacher's plain map+lazy-expiry InMemoryCache, since the
// teacher's cache has no eviction policy and spec requires LRU-on-overflow.
type l1Cache struct {
	inner *lru.LRU[string, model.ForecastCacheEntry]
}

func newL1Cache(maxSize int, ttl time.Duration) (*l1Cache, error) {
	if maxSize <= 0 {
		maxSize = 500
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	inner := lru.NewLRU[string, model.ForecastCacheEntry](maxSize, nil, ttl)
	return &l1Cache{inner: inner}, nil
}

func (c *l1Cache) get(key string) (model.ForecastCacheEntry, bool) {
	return c.inner.Get(key)
}

func (c *l1Cache) set(key string, entry model.ForecastCacheEntry) {
	c.inner.Add(key, entry)
}

func (c *l1Cache) size() int {
	return c.inner.Len()
}
