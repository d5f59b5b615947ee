package commentvalidation

import (
	"math"
	"strconv"
	"strings"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// Rule 1: weather-condition words. Grounded on weather_comment_validator.py's
// weather-category forbidden-word tables (spec §4.5.1).
func (e *Engine) checkWeatherConditionWords(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	category := ""
	switch {
	case weather.Condition.IsRainLike():
		category = "rain"
	case weather.Condition == model.ConditionClear:
		category = "clear"
	}
	if category == "" {
		return model.Valid()
	}
	for _, word := range e.Lexicon.WeatherForbidden[category] {
		if strings.Contains(comment.CommentText, word) {
			return model.Invalid("weather_condition_words", "forbidden word \""+word+"\" for condition "+string(weather.Condition))
		}
	}
	return model.Valid()
}

// temperatureBand classifies a temperature into the bands used by rule 2,
// grounded on temperature_validator.py's band boundaries.
func temperatureBand(temp float64) string {
	switch {
	case temp >= HeatstrokeSevereTemp:
		return "very_hot"
	case temp >= HeatstrokeWarningTemp:
		return "hot"
	case temp >= 25:
		return "moderate_warm"
	case temp >= 12:
		return "mild"
	case temp >= 0:
		return "cold"
	default:
		return "very_cold"
	}
}

// Rule 2: temperature bands. Implements the exact boundary rule from spec
// §8: 34.0°C allows "熱中症"; 33.9°C rejects it.
func (e *Engine) checkTemperatureBands(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	band := temperatureBand(weather.Temperature)
	for _, word := range e.Lexicon.TempBandForbidden[band] {
		if strings.Contains(comment.CommentText, word) {
			return model.Invalid("temperature_bands", "word \""+word+"\" forbidden at temperature "+formatTemp(weather.Temperature)+" (band "+band+")")
		}
	}
	if strings.Contains(comment.CommentText, "熱中症") && weather.Temperature < HeatstrokeWarningTemp {
		return model.Invalid("temperature_bands", "\"熱中症\" requires temperature >= 34.0, got "+formatTemp(weather.Temperature))
	}
	if strings.Contains(comment.CommentText, "凍える") && weather.Temperature > ColdWarningTemp {
		return model.Invalid("temperature_bands", "\"凍える\" requires temperature <= 5.0, got "+formatTemp(weather.Temperature))
	}
	return model.Valid()
}

// Rule 3: humidity band. Implements the exact boundary rule from spec §8:
// humidity exactly 80 forbids "乾燥"; 79.9 allows it.
func (e *Engine) checkHumidityBand(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	if weather.Humidity >= 80 {
		for _, word := range e.Lexicon.DryingWords {
			if strings.Contains(comment.CommentText, word) {
				return model.Invalid("humidity_band", "drying word \""+word+"\" forbidden at humidity >= 80")
			}
		}
	}
	if weather.Humidity < 30 {
		for _, word := range e.Lexicon.DehumidifyingWords {
			if strings.Contains(comment.CommentText, word) {
				return model.Invalid("humidity_band", "dehumidifying word \""+word+"\" forbidden at humidity < 30")
			}
		}
	}
	return model.Valid()
}

// Rule 4: regional. Okinawa forbids snow/extreme-cold vocabulary; Hokkaido
// forbids extreme-heat vocabulary. Coastal/inland uses geodetic distance
// when lat/lon are available, falling back to a name list otherwise (spec
// §9 Open Question resolution: geo-first).
func (e *Engine) checkRegional(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	loc := comment.Location
	if loc == "" {
		loc = weather.Location
	}
	for _, name := range e.Lexicon.OkinawaNames {
		if strings.Contains(loc, name) {
			for _, word := range append(append([]string{}, e.Lexicon.SnowWords...), e.Lexicon.ExtremeColdWords...) {
				if strings.Contains(comment.CommentText, word) {
					return model.Invalid("regional", "word \""+word+"\" forbidden for Okinawa location "+loc)
				}
			}
		}
	}
	for _, name := range e.Lexicon.HokkaidoNames {
		if strings.Contains(loc, name) {
			for _, word := range e.Lexicon.ExtremeHeatWords {
				if strings.Contains(comment.CommentText, word) {
					return model.Invalid("regional", "word \""+word+"\" forbidden for Hokkaido location "+loc)
				}
			}
		}
	}
	return model.Valid()
}

// IsCoastal reports whether (lat,lon) is within CoastalDistanceKM of any
// reference coastal point, using Haversine distance. Callers fall back to a
// name-list check only when lat/lon are unavailable (spec §9).
func (e *Engine) IsCoastal(lat, lon float64) bool {
	for _, p := range e.Lexicon.CoastalRefPoints {
		if haversineKM(lat, lon, p.Lat, p.Lon) <= CoastalDistanceKM {
			return true
		}
	}
	return false
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return r * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// pollenValidMonth reports whether month is within the pollen season for
// region, with the regional overrides from spec §4.5.5: Hokkaido 4-6,
// Kyushu 1-4, Okinawa never, default 2-5.
func pollenValidMonth(month int, region string) bool {
	switch region {
	case "hokkaido":
		return month >= 4 && month <= 6
	case "kyushu":
		return month >= 1 && month <= 4
	case "okinawa":
		return false
	default:
		return month >= 2 && month <= 5
	}
}

func pollenRegion(location string, lex Lexicon) string {
	for _, name := range lex.OkinawaNames {
		if strings.Contains(location, name) {
			return "okinawa"
		}
	}
	for _, name := range lex.HokkaidoNames {
		if strings.Contains(location, name) {
			return "hokkaido"
		}
	}
	if strings.Contains(location, "九州") || strings.Contains(location, "福岡") || strings.Contains(location, "熊本") {
		return "kyushu"
	}
	return ""
}

// Rule 5: pollen. Grounded on pollen_validator.py's seasonal/weather checks,
// extended per spec §4.5.5 with the regional override and humidity/wind checks.
func (e *Engine) checkPollen(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	hasPollenWord := false
	for _, word := range e.Lexicon.PollenWords {
		if strings.Contains(comment.CommentText, word) {
			hasPollenWord = true
			break
		}
	}
	if !hasPollenWord {
		return model.Valid()
	}

	month := int(weather.Timestamp.Month())
	if month == 0 {
		month = 1
	}
	loc := comment.Location
	if loc == "" {
		loc = weather.Location
	}
	region := pollenRegion(loc, e.Lexicon)
	if !pollenValidMonth(month, region) {
		return model.Invalid("pollen", "pollen vocabulary invalid in month "+itoa(month)+" for region "+region)
	}
	if weather.Precipitation > 0 {
		return model.Invalid("pollen", "pollen vocabulary invalid when precipitation > 0")
	}
	if weather.Humidity >= 85 {
		return model.Invalid("pollen", "pollen vocabulary invalid when humidity >= 85")
	}
	if weather.WindSpeed > 15 {
		return model.Invalid("pollen", "pollen vocabulary invalid when wind speed > 15 m/s")
	}
	return model.Valid()
}

// Rule 6: required keywords. If condition is HEAVY_RAIN or STORM-like, the
// comment must contain at least one warning-lexicon word.
func (e *Engine) checkRequiredKeywords(comment model.PastComment, weather model.Forecast) model.ValidationResult {
	description := weather.WeatherDescription
	isHeavyRainTrigger := weather.Condition == model.ConditionHeavyRain || containsAny(description, e.Lexicon.HeavyRainTriggerWords)
	isStormTrigger := weather.Condition == model.ConditionStorm || weather.Condition == model.ConditionSevereStorm || containsAny(description, e.Lexicon.StormTriggerWords)

	if isStormTrigger {
		required := e.Lexicon.StormWeatherReq
		if comment.CommentType == model.CommentTypeAdvice {
			required = e.Lexicon.StormAdviceReq
		}
		if !containsAny(comment.CommentText, required) {
			return model.Invalid("required_keywords", "storm-triggered comment missing required warning vocabulary")
		}
		return model.Valid()
	}
	if isHeavyRainTrigger {
		required := e.Lexicon.HeavyRainWeatherReq
		if comment.CommentType == model.CommentTypeAdvice {
			required = e.Lexicon.HeavyRainAdviceReq
		}
		if !containsAny(comment.CommentText, required) {
			return model.Invalid("required_keywords", "heavy-rain-triggered comment missing required warning vocabulary")
		}
	}
	return model.Valid()
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', 1, 64)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
