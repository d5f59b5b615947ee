package forecastcache

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// l2SpatialCache holds per-location ordered entry lists and serves neighbor
// hits via Haversine distance, grounded on original_source's
// spatial_cache.py (LocationCoordinate.distance_to, SpatialForecastCache).
type l2SpatialCache struct {
	mu            sync.RWMutex
	maxDistanceKM float64
	maxNeighbors  int
	coords        map[string]model.LocationCoordinate
	entries       map[string][]model.ForecastCacheEntry // per-location, capped at 100
}

func newL2SpatialCache(maxDistanceKM float64, maxNeighbors int) *l2SpatialCache {
	return &l2SpatialCache{
		maxDistanceKM: maxDistanceKM,
		maxNeighbors:  maxNeighbors,
		coords:        make(map[string]model.LocationCoordinate),
		entries:       make(map[string][]model.ForecastCacheEntry),
	}
}

func (c *l2SpatialCache) register(coord model.LocationCoordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coords[coord.Name] = coord
}

func (c *l2SpatialCache) put(location string, entry model.ForecastCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.entries[location]
	for _, e := range list {
		if e.Forecast.Timestamp.Equal(entry.Forecast.Timestamp) {
			return // dedup same-datetime entries per location
		}
	}
	list = append(list, entry)
	if len(list) > 100 {
		list = list[len(list)-100:]
	}
	c.entries[location] = list
}

// get tries a direct hit for the location first, then its nearest
// registered neighbors. The second return value is true for a direct hit.
func (c *l2SpatialCache) get(location string, target time.Time) (model.ForecastCacheEntry, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.bestDirect(location, target); ok {
		return entry, true, true
	}

	origin, hasCoord := c.coords[location]
	if !hasCoord {
		return model.ForecastCacheEntry{}, false, false
	}

	type neighbor struct {
		name string
		dist float64
	}
	var neighbors []neighbor
	for name, coord := range c.coords {
		if name == location {
			continue
		}
		d := haversineKM(origin.Lat, origin.Lon, coord.Lat, coord.Lon)
		if d <= c.maxDistanceKM {
			neighbors = append(neighbors, neighbor{name, d})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })
	if len(neighbors) > c.maxNeighbors {
		neighbors = neighbors[:c.maxNeighbors]
	}

	for _, n := range neighbors {
		if entry, ok := c.bestDirect(n.name, target); ok {
			// Re-label to the requesting location but preserve all other
			// fields, per spec §4.1 invariant (b).
			relabeled := entry
			relabeled.Forecast.Location = location
			return relabeled, false, true
		}
	}
	return model.ForecastCacheEntry{}, false, false
}

// bestDirect returns the entry for `location` minimizing |timestamp-target|,
// with no tolerance cap (L2 has no tolerance limit; L3 applies one).
func (c *l2SpatialCache) bestDirect(location string, target time.Time) (model.ForecastCacheEntry, bool) {
	list := c.entries[location]
	if len(list) == 0 {
		return model.ForecastCacheEntry{}, false
	}
	best := list[0]
	bestDiff := math.Abs(target.Sub(best.Forecast.Timestamp).Seconds())
	for _, e := range list[1:] {
		d := math.Abs(target.Sub(e.Forecast.Timestamp).Seconds())
		if d < bestDiff || (d == bestDiff && e.CachedAt.After(best.CachedAt)) {
			best = e
			bestDiff = d
		}
	}
	return best, true
}

// haversineKM computes the great-circle distance in kilometers between two
// lat/lon points, grounded on spatial_cache.py's distance_to (R=6371.0).
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
