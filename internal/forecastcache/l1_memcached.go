package forecastcache

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

const l1MemcachedKeyPrefix = "forecast:"

// l1MemcachedCache is the memcached-backed L1 implementation selected by
// cfg.Backend == "memcached" (spec §4.1's cache.backend setting), grounded
// on the teacher's internal/cache/memcached.go. Unlike l1Cache it has no
// bounded size of its own; eviction and TTL are left to the memcached
// server's own configuration, with ttl applied per-Set as an expiration.
type l1MemcachedCache struct {
	client *memcache.Client
	ttl    time.Duration
}

func newL1MemcachedCache(addrs string, timeout time.Duration, maxIdleConns int, ttl time.Duration) *l1MemcachedCache {
	servers := parseMemcachedAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &l1MemcachedCache{client: client, ttl: ttl}
}

func parseMemcachedAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *l1MemcachedCache) key(k string) string {
	return l1MemcachedKeyPrefix + k
}

func (c *l1MemcachedCache) get(key string) (model.ForecastCacheEntry, bool) {
	item, err := c.client.Get(c.key(key))
	if err != nil {
		return model.ForecastCacheEntry{}, false
	}
	var entry model.ForecastCacheEntry
	if err := json.Unmarshal(item.Value, &entry); err != nil {
		return model.ForecastCacheEntry{}, false
	}
	return entry, true
}

func (c *l1MemcachedCache) set(key string, entry model.ForecastCacheEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	expSec := int32(c.ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600
	}
	_ = c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expSec,
	})
}

// size is not tracked by memcached; callers use it only for diagnostics.
func (c *l1MemcachedCache) size() int {
	return -1
}
