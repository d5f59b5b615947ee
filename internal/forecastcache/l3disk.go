package forecastcache

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// l3DiskCache is the append-only per-location CSV log, grounded on
// original_source's forecast_cache/manager.py (ForecastCache).
type l3DiskCache struct {
	mu            sync.Mutex
	dir           string
	toleranceHrs  float64
	retentionDays int
}

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
var collapseDashSpace = regexp.MustCompile(`[-\s]+`)

const l3Header = "location_name,forecast_datetime,cached_at,temperature,max_temperature,min_temperature,weather_condition,weather_description,precipitation,humidity,wind_speed,metadata"

func newL3DiskCache(dir string, toleranceHrs float64, retentionDays int) *l3DiskCache {
	if toleranceHrs <= 0 {
		toleranceHrs = 3.0
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &l3DiskCache{dir: dir, toleranceHrs: toleranceHrs, retentionDays: retentionDays}
}

// safeFileName sanitizes a location name per spec §6: strip everything but
// letters and digits of any script, underscore, whitespace and hyphen, then
// collapse runs of whitespace/hyphen into a single hyphen.
func safeFileName(location string) string {
	s := unsafeNameChars.ReplaceAllString(location, "")
	s = collapseDashSpace.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func (c *l3DiskCache) filePath(location string) string {
	return filepath.Join(c.dir, fmt.Sprintf("forecast_cache_%s.csv", safeFileName(location)))
}

// append writes one row, creating the header if the file is new, then runs
// compaction. File IO failures are returned as errors for the caller to
// downgrade to a warning (spec §4.1: "the cache is advisory").
func (c *l3DiskCache) append(entry model.ForecastCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("l3disk: mkdir: %w", err)
	}
	path := c.filePath(entry.Forecast.Location)

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("l3disk: open: %w", err)
	}
	defer f.Close()

	if needsHeader {
		if _, err := f.WriteString(l3Header + "\n"); err != nil {
			return fmt.Errorf("l3disk: write header: %w", err)
		}
	}
	row := entryToRow(entry)
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("l3disk: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("l3disk: flush: %w", err)
	}

	return c.compact(entry.Forecast.Location)
}

// get scans the location's file for entries within ±7 days of target,
// picking the one minimizing |forecast_datetime - target|, tie-broken by
// newest cached_at, and rejecting gaps beyond toleranceHrs.
func (c *l3DiskCache) get(location string, target time.Time) (model.ForecastCacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.loadEntries(location, target.Add(-7*24*time.Hour), target.Add(7*24*time.Hour))
	if err != nil {
		if os.IsNotExist(err) {
			return model.ForecastCacheEntry{}, false, nil
		}
		return model.ForecastCacheEntry{}, false, err
	}
	if len(entries) == 0 {
		return model.ForecastCacheEntry{}, false, nil
	}

	best := entries[0]
	bestDiff := math.Abs(target.Sub(best.Forecast.Timestamp).Hours())
	for _, e := range entries[1:] {
		d := math.Abs(target.Sub(e.Forecast.Timestamp).Hours())
		if d < bestDiff || (d == bestDiff && e.CachedAt.After(best.CachedAt)) {
			best = e
			bestDiff = d
		}
	}
	if bestDiff > c.toleranceHrs {
		return model.ForecastCacheEntry{}, false, nil
	}
	return best, true, nil
}

func (c *l3DiskCache) loadEntries(location string, from, to time.Time) ([]model.ForecastCacheEntry, error) {
	path := c.filePath(location)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out []model.ForecastCacheEntry
	first := true
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == "location_name" {
				continue // header
			}
		}
		if len(rec) < 6 {
			continue // spec §4.1 invariant (c): minimum 6 columns
		}
		entry, ok := rowToEntry(rec)
		if !ok {
			continue
		}
		if entry.Forecast.Timestamp.Before(from) || entry.Forecast.Timestamp.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// compact drops entries cached before the retention cutoff and rewrites the
// file, run after each save per spec §4.1.
func (c *l3DiskCache) compact(location string) error {
	path := c.filePath(location)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("l3disk: compact open: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var kept [][]string
	cutoff := time.Now().AddDate(0, 0, -c.retentionDays)
	first := true
	for {
		rec, rerr := r.Read()
		if rerr != nil {
			break
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == "location_name" {
				continue
			}
		}
		if len(rec) < 3 {
			continue
		}
		cachedAt, err := time.Parse(time.RFC3339, rec[2])
		if err != nil || cachedAt.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	f.Close()

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("l3disk: compact create: %w", err)
	}
	if _, err := out.WriteString(l3Header + "\n"); err != nil {
		out.Close()
		return fmt.Errorf("l3disk: compact header: %w", err)
	}
	w := csv.NewWriter(out)
	for _, rec := range kept {
		if err := w.Write(rec); err != nil {
			out.Close()
			return fmt.Errorf("l3disk: compact write: %w", err)
		}
	}
	w.Flush()
	out.Close()
	return os.Rename(tmp, path)
}

func entryToRow(e model.ForecastCacheEntry) []string {
	f := e.Forecast
	return []string{
		f.Location,
		f.Timestamp.Format(time.RFC3339),
		e.CachedAt.Format(time.RFC3339),
		strconv.FormatFloat(f.Temperature, 'f', 1, 64),
		strconv.FormatFloat(e.MaxTemp, 'f', 1, 64),
		strconv.FormatFloat(e.MinTemp, 'f', 1, 64),
		string(f.Condition),
		f.WeatherDescription,
		strconv.FormatFloat(f.Precipitation, 'f', 2, 64),
		strconv.FormatFloat(f.Humidity, 'f', 1, 64),
		strconv.FormatFloat(f.WindSpeed, 'f', 1, 64),
		e.Metadata,
	}
}

func rowToEntry(rec []string) (model.ForecastCacheEntry, bool) {
	get := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	ts, err := time.Parse(time.RFC3339, get(1))
	if err != nil {
		return model.ForecastCacheEntry{}, false
	}
	cachedAt, err := time.Parse(time.RFC3339, get(2))
	if err != nil {
		cachedAt = ts
	}
	temp, _ := strconv.ParseFloat(get(3), 64)
	maxTemp, _ := strconv.ParseFloat(get(4), 64)
	minTemp, _ := strconv.ParseFloat(get(5), 64)
	precip, _ := strconv.ParseFloat(get(8), 64)
	humidity, _ := strconv.ParseFloat(get(9), 64)
	windSpeed, _ := strconv.ParseFloat(get(10), 64)

	return model.ForecastCacheEntry{
		Forecast: model.Forecast{
			Location:           get(0),
			Timestamp:          ts,
			Temperature:        temp,
			Condition:          model.WeatherCondition(get(6)),
			WeatherDescription: get(7),
			Precipitation:      precip,
			Humidity:           humidity,
			WindSpeed:          windSpeed,
		},
		CachedAt: cachedAt,
		MaxTemp:  maxTemp,
		MinTemp:  minTemp,
		Metadata: get(11),
	}, true
}
