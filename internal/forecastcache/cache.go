// Package forecastcache implements the three-layer forecast cache from
// spec §4.1: an in-memory LRU (L1), a spatial neighbor cache (L2), and an
// append-only per-location CSV log (L3). All writes propagate through all
// layers; reads fall through L1 -> L2 -> L3.
//
// This generalizes the teacher's single-layer InMemoryCache/MemcachedCache
// (internal/cache) into a layered forecast-specific cache; the reentrant
// mutex and lazy-TTL conventions are carried over from there.
package forecastcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
)

// Cache is the layered read/write surface consumed by the weather client
// (C4) and the forecast selector (C5).
type Cache interface {
	Save(ctx context.Context, f model.Forecast) error
	GetAt(ctx context.Context, location string, target time.Time) (model.ForecastCacheEntry, bool, error)
	RegisterLocation(coord model.LocationCoordinate)
}

// Config bundles the tunables for all three layers.
type Config struct {
	// Backend selects the L1 implementation: "in_memory" (default) or
	// "memcached" (cache.backend in spec §4.1's config layout).
	Backend               string
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	L1MaxSize        int
	L1TTL            time.Duration
	L2MaxDistanceKM  float64
	L2MaxNeighbors   int
	L3Dir            string
	L3ToleranceHours float64
	L3RetentionDays  int
}

// DefaultConfig mirrors the defaults named in spec §4.1.
func DefaultConfig() Config {
	return Config{
		Backend:          "in_memory",
		L1MaxSize:        500,
		L1TTL:            300 * time.Second,
		L2MaxDistanceKM:  10.0,
		L2MaxNeighbors:   5,
		L3Dir:            ".cache/forecasts",
		L3ToleranceHours: 3.0,
		L3RetentionDays:  7,
	}
}

// LayeredCache wires the three layers together under a single reentrant
// mutex for cross-layer bookkeeping (location registration); each layer
// additionally guards its own internal state.
type LayeredCache struct {
	mu sync.RWMutex
	l1 l1Store
	l2 *l2SpatialCache
	l3 *l3DiskCache

	hitsL1, missesL1 int64
	hitsL2Direct     int64
	hitsL2Neighbor   int64
	hitsL3           int64
}

// New constructs a LayeredCache from Config. L1 is in-memory LRU unless
// cfg.Backend == "memcached", in which case L1 is backed by memcached
// (cfg.MemcachedAddrs/MemcachedTimeout/MemcachedMaxIdleConns).
func New(cfg Config) (*LayeredCache, error) {
	var l1 l1Store
	switch strings.ToLower(cfg.Backend) {
	case "memcached":
		l1 = newL1MemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, cfg.L1TTL)
	default:
		inMemory, err := newL1Cache(cfg.L1MaxSize, cfg.L1TTL)
		if err != nil {
			return nil, fmt.Errorf("forecastcache: l1: %w", err)
		}
		l1 = inMemory
	}
	l2 := newL2SpatialCache(cfg.L2MaxDistanceKM, cfg.L2MaxNeighbors)
	l3 := newL3DiskCache(cfg.L3Dir, cfg.L3ToleranceHours, cfg.L3RetentionDays)
	return &LayeredCache{l1: l1, l2: l2, l3: l3}, nil
}

// RegisterLocation records a location's coordinate for L2 neighbor lookups.
func (c *LayeredCache) RegisterLocation(coord model.LocationCoordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.l2.register(coord)
}

// Save writes the forecast through L1, L2, and L3 (append + compaction).
func (c *LayeredCache) Save(ctx context.Context, f model.Forecast) error {
	entry := model.ForecastCacheEntry{Forecast: f, CachedAt: time.Now()}
	key := cacheKey(f.Location, f.Timestamp)

	c.l1.set(key, entry)
	c.l2.put(f.Location, entry)

	if err := c.l3.append(entry); err != nil {
		// File IO failures are warnings, not errors (spec §4.1).
		return fmt.Errorf("forecastcache: l3 append (non-fatal): %w", err)
	}
	return nil
}

// GetAt reads through L1 -> L2 -> L3, populating faster layers on a deeper hit.
func (c *LayeredCache) GetAt(ctx context.Context, location string, target time.Time) (model.ForecastCacheEntry, bool, error) {
	key := cacheKey(location, target)

	if entry, ok := c.l1.get(key); ok {
		c.mu.Lock()
		c.hitsL1++
		c.mu.Unlock()
		observability.CacheL1HitsTotal.Inc()
		return entry, true, nil
	}
	c.mu.Lock()
	c.missesL1++
	c.mu.Unlock()

	if entry, direct, ok := c.l2.get(location, target); ok {
		c.mu.Lock()
		if direct {
			c.hitsL2Direct++
		} else {
			c.hitsL2Neighbor++
		}
		c.mu.Unlock()
		if !direct {
			observability.CacheL2NeighborHitsTotal.Inc()
		}
		c.l1.set(key, entry)
		return entry, true, nil
	}

	entry, ok, err := c.l3.get(location, target)
	if err != nil {
		return model.ForecastCacheEntry{}, false, err
	}
	if ok {
		c.mu.Lock()
		c.hitsL3++
		c.mu.Unlock()
		observability.CacheL3ReadsTotal.Inc()
		c.l1.set(key, entry)
		c.l2.put(location, entry)
		return entry, true, nil
	}
	return model.ForecastCacheEntry{}, false, nil
}

// Stats reports cumulative hit counters for observability.
func (c *LayeredCache) Stats() (hitsL1, missesL1, hitsL2Direct, hitsL2Neighbor, hitsL3 int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hitsL1, c.missesL1, c.hitsL2Direct, c.hitsL2Neighbor, c.hitsL3
}

func cacheKey(location string, t time.Time) string {
	return fmt.Sprintf("%s|%s", location, t.Format("200601021504"))
}
