// Package commentvalidation implements the validation engine from spec
// §4.5: an ordered, short-circuiting battery of rules over a single
// comment, and a second battery over a (weather, advice) pair.
//
// Rule text and thresholds are grounded on original_source's
// utils/validators/*.py (weather_comment_validator.py, temperature_validator.py,
// pollen_validator.py) plus spec §4.5's richer regional/pollen extensions.
package commentvalidation

import (
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/forecastselect"
	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
)

// Engine composes the rule batteries in a fixed order and stops at the
// first failure, per spec §4.5.
type Engine struct {
	Lexicon Lexicon
}

// New constructs an Engine with the given lexicon (loaded from config, or
// DefaultLexicon() as a hard-coded fallback).
func New(lexicon Lexicon) *Engine {
	return &Engine{Lexicon: lexicon}
}

// Validate runs the six per-comment rule batteries (spec §4.5, rules 1-6)
// against a single comment.
func (e *Engine) Validate(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	rules := []func(model.PastComment, model.Forecast) model.ValidationResult{
		e.checkWeatherConditionWords,
		e.checkTemperatureBands,
		e.checkHumidityBand,
		e.checkRegional,
		e.checkPollen,
		e.checkRequiredKeywords,
	}
	for _, rule := range rules {
		if res := rule(comment, weather); !res.IsValid {
			observability.ValidationRejectionsTotal.WithLabelValues(res.ViolatingRule).Inc()
			return res
		}
	}
	return model.Valid()
}

// ValidatePair runs the eight pair-level rule batteries (spec §4.5, rules
// 7-14) against an assembled (weather_comment, advice_comment) pair, in
// addition to re-validating each comment individually first.
func (e *Engine) ValidatePair(weatherComment, adviceComment model.PastComment, weather model.Forecast, state *model.GenerationState) model.ValidationResult {
	if res := e.Validate(weatherComment, weather); !res.IsValid {
		return res
	}
	if res := e.Validate(adviceComment, weather); !res.IsValid {
		return res
	}

	periodForecasts := []model.Forecast{weather}
	if state != nil && len(state.PeriodForecasts) > 0 {
		periodForecasts = state.PeriodForecasts
	}

	rules := []func(model.PastComment, model.PastComment, model.Forecast, []model.Forecast) model.ValidationResult{
		e.checkWeatherRealityContradiction,
		e.checkTemperatureSymptomContradiction,
		e.checkContentDuplication,
		e.checkToneContradiction,
		e.checkUmbrellaRedundancy,
		e.checkTimeTemperature,
		e.checkContinuousRain,
		e.checkSeasonalAppropriateness,
	}
	for _, rule := range rules {
		if res := rule(weatherComment, adviceComment, weather, periodForecasts); !res.IsValid {
			observability.ValidationRejectionsTotal.WithLabelValues(res.ViolatingRule).Inc()
			return res
		}
	}
	return model.Valid()
}

// SeasonFromMonth maps a calendar month to the corpus's season key.
// Grounded on weather_comment_validator.py's _get_season_from_month: note
// that September maps to 台風 (typhoon season), not 秋, matching the
// original implementation exactly.
func SeasonFromMonth(month time.Month) string {
	switch month {
	case time.March, time.April, time.May:
		return "春"
	case time.June:
		return "梅雨"
	case time.July, time.August:
		return "夏"
	case time.September:
		return "台風"
	case time.October, time.November:
		return "秋"
	default: // December, January, February
		return "冬"
	}
}

// HourInWindow reports whether hour falls in [start,end) on a 24h clock,
// wrapping past midnight when start > end (used by the night/day windows
// in rule 12).
func HourInWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// continuousRainThreshold re-exports forecastselect's authoritative config
// constant so validation rule 13 shares one source of truth with forecast
// selection (spec §9 Open Question: config constant wins).
var continuousRainThreshold = forecastselect.ContinuousRainThresholdHours
