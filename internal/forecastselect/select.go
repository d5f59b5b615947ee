// Package forecastselect implements target-hour extraction and priority
// selection from spec §4.3: picking the four canonical report-hour
// forecasts out of a collection, then choosing the single forecast that
// drives comment generation.
package forecastselect

import (
	"math"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// ReportHours are the four canonical JST hours extracted per day.
var ReportHours = []int{9, 12, 15, 18}

// TargetDate applies spec §4.3's rule: if the current local hour is before
// 6, the target is today; otherwise tomorrow.
func TargetDate(now time.Time) time.Time {
	loc := now.Location()
	if now.Hour() < 6 {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
}

// ExtractReportHours finds, for each canonical hour on targetDate, the
// forecast in the collection minimizing the absolute time delta. No
// tolerance limit applies; the closest entry always wins. Hours with no
// candidate are omitted from the result.
func ExtractReportHours(collection model.ForecastCollection, targetDate time.Time) []model.Forecast {
	var out []model.Forecast
	for _, hour := range ReportHours {
		target := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), hour, 0, 0, 0, targetDate.Location())
		best, ok := closest(collection.Forecasts, target)
		if ok {
			out = append(out, best)
		}
	}
	return out
}

func closest(forecasts []model.Forecast, target time.Time) (model.Forecast, bool) {
	if len(forecasts) == 0 {
		return model.Forecast{}, false
	}
	best := forecasts[0]
	bestDiff := math.Abs(target.Sub(best.Timestamp).Seconds())
	for _, f := range forecasts[1:] {
		d := math.Abs(target.Sub(f.Timestamp).Seconds())
		if d < bestDiff {
			best = f
			bestDiff = d
		}
	}
	return best, true
}

const heavyRainThresholdMMPerHour = 10.0
const extremeHeatThresholdC = 35.0

// SelectPriority applies the seven-rule priority ladder from spec §4.3 over
// the report-hour forecasts, returning the forecast that drives comment
// generation for the day. Codifies the Open Question resolution: storm/
// fog/thunder > heavy rain > any rain > extreme heat > severe > non-clear >
// temperature (see DESIGN.md).
func SelectPriority(hours []model.Forecast) (model.Forecast, bool) {
	if len(hours) == 0 {
		return model.Forecast{}, false
	}

	// 1. THUNDER/FOG/STORM/SEVERE_STORM -> highest condition-priority rank.
	if f, ok := maxByCondition(hours, func(f model.Forecast) bool {
		switch f.Condition {
		case model.ConditionThunder, model.ConditionFog, model.ConditionStorm, model.ConditionSevereStorm:
			return true
		}
		return false
	}); ok {
		return f, true
	}

	// 2. Heavy rain (>10mm/h) -> highest precipitation.
	if f, ok := maxByPrecip(hours, func(f model.Forecast) bool { return f.Precipitation > heavyRainThresholdMMPerHour }); ok {
		return f, true
	}

	// 3. Any rain -> highest precipitation.
	if f, ok := maxByPrecip(hours, func(f model.Forecast) bool { return f.Precipitation > 0 }); ok {
		return f, true
	}

	// 4. Extreme heat (>=35C) -> highest temperature.
	if f, ok := maxByTemp(hours, func(f model.Forecast) bool { return f.Temperature >= extremeHeatThresholdC }); ok {
		return f, true
	}

	// 5. Any "severe" condition -> highest precipitation.
	if f, ok := maxByPrecip(hours, func(f model.Forecast) bool {
		return f.Condition.IsSevere() || f.Precipitation > heavyRainThresholdMMPerHour
	}); ok {
		return f, true
	}

	// 6. Any non-clear forecast -> highest condition-priority rank.
	if f, ok := maxByCondition(hours, func(f model.Forecast) bool { return f.Condition != model.ConditionClear }); ok {
		return f, true
	}

	// 7. Otherwise -> highest-temperature forecast.
	return maxByTempAny(hours), true
}

func maxByCondition(hours []model.Forecast, match func(model.Forecast) bool) (model.Forecast, bool) {
	var best model.Forecast
	found := false
	for _, f := range hours {
		if !match(f) {
			continue
		}
		if !found || f.Condition.Priority() > best.Condition.Priority() {
			best = f
			found = true
		}
	}
	return best, found
}

func maxByPrecip(hours []model.Forecast, match func(model.Forecast) bool) (model.Forecast, bool) {
	var best model.Forecast
	found := false
	for _, f := range hours {
		if !match(f) {
			continue
		}
		if !found || f.Precipitation > best.Precipitation {
			best = f
			found = true
		}
	}
	return best, found
}

func maxByTemp(hours []model.Forecast, match func(model.Forecast) bool) (model.Forecast, bool) {
	var best model.Forecast
	found := false
	for _, f := range hours {
		if !match(f) {
			continue
		}
		if !found || f.Temperature > best.Temperature {
			best = f
			found = true
		}
	}
	return best, found
}

func maxByTempAny(hours []model.Forecast) model.Forecast {
	best := hours[0]
	for _, f := range hours[1:] {
		if f.Temperature > best.Temperature {
			best = f
		}
	}
	return best
}

// LegacyPriorityByNumericRank is the alternate ordering surfaced by the
// Open Question in spec §9: pure condition.Priority() ranking with no
// weather-category short-circuit, kept as a test-covered alternative and
// NOT used by the default orchestrator (see DESIGN.md Open Question
// resolution).
func LegacyPriorityByNumericRank(hours []model.Forecast) (model.Forecast, bool) {
	if len(hours) == 0 {
		return model.Forecast{}, false
	}
	best := hours[0]
	for _, f := range hours[1:] {
		if f.Condition.Priority() > best.Condition.Priority() {
			best = f
		}
	}
	return best, true
}

// ContinuousRainThresholdHours is the default for the config constant
// treated as authoritative per spec §9's Open Question resolution.
const ContinuousRainThresholdHours = 4

// IsContinuousRain reports whether at least minHours of the given report-hour
// forecasts show rain (precip >= 0.1mm/h or a rain-like condition), per the
// testable property in spec §8.
func IsContinuousRain(hours []model.Forecast, minHours int) bool {
	if minHours <= 0 {
		minHours = ContinuousRainThresholdHours
	}
	count := 0
	for _, f := range hours {
		if f.Precipitation >= 0.1 || f.Condition.IsRainLike() {
			count++
		}
	}
	return count >= minHours
}

// TrendDirection compares condition ranks across report-hour forecasts,
// returning "improving", "deteriorating", or "stable". Requires at least 2
// forecasts; callers should skip trend analysis otherwise (spec §4.3).
func TrendDirection(hours []model.Forecast) string {
	if len(hours) < 2 {
		return ""
	}
	first := hours[0].Condition.Priority()
	last := hours[len(hours)-1].Condition.Priority()
	switch {
	case last < first:
		return "improving"
	case last > first:
		return "deteriorating"
	default:
		return "stable"
	}
}
