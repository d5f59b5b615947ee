// Package model holds the plain data types shared across the generation
// pipeline: forecasts, comments, pairs, and the per-request generation state.
//
// These are deliberately plain structs, not dict-like or dynamically typed
// records: every field is named and typed up front.
package model

import (
	"fmt"
	"time"
)

// WeatherCondition is a closed enumeration of the weather categories the
// pipeline reasons about. It has more variants than the raw API weather code
// so that validation and selection rules can match on category rather than
// on magic numeric codes.
type WeatherCondition string

const (
	ConditionClear        WeatherCondition = "CLEAR"
	ConditionPartlyCloudy WeatherCondition = "PARTLY_CLOUDY"
	ConditionCloudy       WeatherCondition = "CLOUDY"
	ConditionFog          WeatherCondition = "FOG"
	ConditionRain         WeatherCondition = "RAIN"
	ConditionHeavyRain    WeatherCondition = "HEAVY_RAIN"
	ConditionThunder      WeatherCondition = "THUNDER"
	ConditionSnow         WeatherCondition = "SNOW"
	ConditionHeavySnow    WeatherCondition = "HEAVY_SNOW"
	ConditionStorm        WeatherCondition = "STORM"
	ConditionSevereStorm  WeatherCondition = "SEVERE_STORM"
	ConditionExtremeHeat  WeatherCondition = "EXTREME_HEAT"
	ConditionUnknown      WeatherCondition = "UNKNOWN"
)

// conditionPriority ranks conditions for the "highest condition-priority
// rank" tie-breaks used by forecast selection (spec §4.3). Higher is more
// editorially urgent.
var conditionPriority = map[WeatherCondition]int{
	ConditionSevereStorm:  100,
	ConditionStorm:        90,
	ConditionThunder:      85,
	ConditionFog:          70,
	ConditionHeavySnow:    65,
	ConditionHeavyRain:    60,
	ConditionSnow:         50,
	ConditionRain:         45,
	ConditionExtremeHeat:  40,
	ConditionCloudy:       20,
	ConditionPartlyCloudy: 15,
	ConditionClear:        10,
	ConditionUnknown:      0,
}

// Priority returns the condition's editorial-urgency rank; higher wins ties.
func (c WeatherCondition) Priority() int {
	return conditionPriority[c]
}

// IsSevere reports whether the condition is one of the severe-weather
// categories named in the glossary: HEAVY_RAIN, STORM, SEVERE_STORM,
// THUNDER, HEAVY_SNOW, FOG. Precipitation-based severity (>10mm/h) is
// evaluated separately by callers.
func (c WeatherCondition) IsSevere() bool {
	switch c {
	case ConditionHeavyRain, ConditionStorm, ConditionSevereStorm, ConditionThunder, ConditionHeavySnow, ConditionFog:
		return true
	default:
		return false
	}
}

// IsRainLike reports whether the condition implies rain is occurring.
func (c WeatherCondition) IsRainLike() bool {
	switch c {
	case ConditionRain, ConditionHeavyRain, ConditionStorm, ConditionSevereStorm, ConditionThunder:
		return true
	default:
		return false
	}
}

// WindDirection is the 8-way compass enumeration plus CALM and UNKNOWN.
type WindDirection string

const (
	WindCalm    WindDirection = "CALM"
	WindN       WindDirection = "N"
	WindNE      WindDirection = "NE"
	WindE       WindDirection = "E"
	WindSE      WindDirection = "SE"
	WindS       WindDirection = "S"
	WindSW      WindDirection = "SW"
	WindW       WindDirection = "W"
	WindNW      WindDirection = "NW"
	WindUnknown WindDirection = "UNKNOWN"
)

// Forecast is an immutable single-hour (or single-day) weather record.
// Equality is defined by (Location, Timestamp) per spec §3.
type Forecast struct {
	Location           string
	Timestamp          time.Time // JST
	Temperature        float64   // °C, -50..60
	WeatherCode        string    // raw 3-digit API code
	Condition          WeatherCondition
	WeatherDescription string // localized Japanese text
	Precipitation      float64 // mm/h, 0..500
	Humidity           float64 // %, 0..100
	WindSpeed          float64 // m/s, 0..200
	WindDirection      WindDirection
	WindDegrees        int
}

// Validate enforces the numeric invariants from spec §3 and §8.
func (f Forecast) Validate() error {
	if f.Temperature < -50 || f.Temperature > 60 {
		return fmt.Errorf("model: temperature %.1f out of range [-50,60]", f.Temperature)
	}
	if f.Humidity < 0 || f.Humidity > 100 {
		return fmt.Errorf("model: humidity %.1f out of range [0,100]", f.Humidity)
	}
	if f.Precipitation < 0 || f.Precipitation > 500 {
		return fmt.Errorf("model: precipitation %.1f out of range [0,500]", f.Precipitation)
	}
	if f.WindSpeed < 0 || f.WindSpeed > 200 {
		return fmt.Errorf("model: wind speed %.1f out of range [0,200]", f.WindSpeed)
	}
	return nil
}

// Equal implements the (location, timestamp) equality rule from spec §3.
func (f Forecast) Equal(other Forecast) bool {
	return f.Location == other.Location && f.Timestamp.Equal(other.Timestamp)
}

// ForecastCollection is an ordered, ascending-by-time sequence of Forecast
// for one location.
type ForecastCollection struct {
	Location  string
	Forecasts []Forecast
}

// Sorted returns true if the collection is ordered ascending by Timestamp.
func (fc ForecastCollection) Sorted() bool {
	for i := 1; i < len(fc.Forecasts); i++ {
		if fc.Forecasts[i].Timestamp.Before(fc.Forecasts[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// ForecastCacheEntry augments a Forecast with the time it was cached and
// opaque metadata. It is the unit persisted to L3 (one CSV row per entry).
type ForecastCacheEntry struct {
	Forecast Forecast
	CachedAt time.Time // JST
	MaxTemp  float64
	MinTemp  float64
	Metadata string
}

// LocationCoordinate is a named point used by the spatial (L2) cache.
type LocationCoordinate struct {
	Name string
	Lat  float64
	Lon  float64
}
