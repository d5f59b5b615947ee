package forecastcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

func newTestCache(t *testing.T) *LayeredCache {
	t.Helper()
	cfg := DefaultConfig()
	cfg.L3Dir = filepath.Join(t.TempDir(), "forecasts")
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestLayeredCache_SaveThenGetAt_L1Hit(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	f := model.Forecast{Location: "Tokyo", Timestamp: ts, Temperature: 30, Condition: model.ConditionClear}

	if err := c.Save(ctx, f); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entry, ok, err := c.GetAt(ctx, "Tokyo", ts)
	if err != nil || !ok {
		t.Fatalf("GetAt() = (_, %v, %v), want (_, true, nil)", ok, err)
	}
	if entry.Forecast.Temperature != 30 {
		t.Errorf("Temperature = %v, want 30", entry.Forecast.Temperature)
	}
	hitsL1, _, _, _, _ := c.Stats()
	if hitsL1 != 1 {
		t.Errorf("hitsL1 = %d, want 1", hitsL1)
	}
}

func TestLayeredCache_L2NeighborHit_RequiresRegisteredCoordinate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	c.RegisterLocation(model.LocationCoordinate{Name: "A", Lat: 35.0, Lon: 139.0})
	c.RegisterLocation(model.LocationCoordinate{Name: "B", Lat: 35.01, Lon: 139.01}) // ~1.4km away

	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	if err := c.Save(ctx, model.Forecast{Location: "A", Timestamp: ts, Temperature: 28}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Evict A's L1 entry to force an L2 lookup for B.
	c.l1 = mustNewL1(t)

	entry, ok, err := c.GetAt(ctx, "B", ts)
	if err != nil || !ok {
		t.Fatalf("GetAt(B) = (_, %v, %v), want neighbor hit", ok, err)
	}
	if entry.Forecast.Location != "B" {
		t.Errorf("neighbor hit should be relabeled to requesting location, got %q", entry.Forecast.Location)
	}
	if entry.Forecast.Temperature != 28 {
		t.Errorf("neighbor hit must preserve numeric fields, got temp=%v", entry.Forecast.Temperature)
	}
}

func TestLayeredCache_NoRegisteredCoordinate_NeverServesNeighborHit(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	// C is never registered with a coordinate.
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	_, ok, _ := c.GetAt(ctx, "C", ts)
	if ok {
		t.Fatalf("GetAt() for unregistered location should never hit")
	}
}

func TestL3DiskCache_RejectsGapBeyondTolerance(t *testing.T) {
	dir := t.TempDir()
	l3 := newL3DiskCache(dir, 1.0, 7)
	ts := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	entry := model.ForecastCacheEntry{
		Forecast: model.Forecast{Location: "X", Timestamp: ts, Temperature: 25, Condition: model.ConditionClear},
		CachedAt: time.Now(),
	}
	if err := l3.append(entry); err != nil {
		t.Fatalf("append() error = %v", err)
	}

	// Within tolerance.
	if _, ok, err := l3.get("X", ts.Add(30*time.Minute)); err != nil || !ok {
		t.Errorf("get() within tolerance = (_, %v, %v), want true", ok, err)
	}
	// Beyond tolerance.
	if _, ok, err := l3.get("X", ts.Add(5*time.Hour)); err != nil || ok {
		t.Errorf("get() beyond tolerance = (_, %v, %v), want false", ok, err)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"東京都":      "東京都",
		"New York":  "New-York",
		"Foo/Bar*!": "FooBar",
	}
	for in, want := range cases {
		got := safeFileName(in)
		if got != want {
			t.Errorf("safeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHaversineKM_KnownDistance(t *testing.T) {
	// Tokyo to Osaka, roughly 400km.
	d := haversineKM(35.6812, 139.7671, 34.6937, 135.5023)
	if d < 390 || d > 410 {
		t.Errorf("haversineKM(Tokyo, Osaka) = %.1f, want ~400km", d)
	}
}

func mustNewL1(t *testing.T) *l1Cache {
	t.Helper()
	l1, err := newL1Cache(500, 300*time.Second)
	if err != nil {
		t.Fatalf("newL1Cache() error = %v", err)
	}
	return l1
}
