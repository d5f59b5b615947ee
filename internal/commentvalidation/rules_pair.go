package commentvalidation

import (
	"strings"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// Rule 7: weather-reality contradiction. The weather comment must not
// assert sunny wording under rain, rainy wording under sun, hot wording at
// <10°C, or cold wording at >30°C.
func (e *Engine) checkWeatherRealityContradiction(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	text := weatherComment.CommentText
	if weather.Condition.IsRainLike() && containsAny(text, e.Lexicon.SunnyWords) {
		return model.Invalid("weather_reality_contradiction", "sunny wording asserted under rain")
	}
	if weather.Condition == model.ConditionClear && containsAny(text, e.Lexicon.RainyWords) {
		return model.Invalid("weather_reality_contradiction", "rainy wording asserted under clear sky")
	}
	if weather.Temperature < 10 && containsAny(text, e.Lexicon.HotWords) {
		return model.Invalid("weather_reality_contradiction", "hot wording asserted below 10°C")
	}
	if weather.Temperature > 30 && containsAny(text, e.Lexicon.ColdWords) {
		return model.Invalid("weather_reality_contradiction", "cold wording asserted above 30°C")
	}
	return model.Valid()
}

// Rule 8: temperature-symptom contradiction, e.g. advice says "熱中症"
// while temp < 34, or "凍える" while temp > 5.
func (e *Engine) checkTemperatureSymptomContradiction(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	combined := weatherComment.CommentText + adviceComment.CommentText
	if weather.Temperature < HeatstrokeWarningTemp && containsAny(combined, e.Lexicon.HeatSymptomWords) {
		return model.Invalid("temperature_symptom_contradiction", "heat-symptom wording forbidden below 34°C")
	}
	if weather.Temperature > ColdWarningTemp && containsAny(combined, e.Lexicon.ColdSymptomWords) {
		return model.Invalid("temperature_symptom_contradiction", "cold-symptom wording forbidden above 5°C")
	}
	return model.Valid()
}

// Rule 9: content duplication. Exact match, punctuation-stripped equality,
// shared critical keyword, or character-overlap above 0.7 on short strings.
func (e *Engine) checkContentDuplication(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	a, b := weatherComment.CommentText, adviceComment.CommentText
	if a == b {
		return model.Invalid("content_duplication", "weather and advice comments are identical")
	}
	if stripPunctuation(a) == stripPunctuation(b) {
		return model.Invalid("content_duplication", "weather and advice comments are identical after stripping punctuation")
	}
	for _, kw := range e.Lexicon.CriticalKeywords {
		if strings.Contains(a, kw) && strings.Contains(b, kw) {
			return model.Invalid("content_duplication", "both comments share critical keyword \""+kw+"\"")
		}
	}
	if jaccardCharOverlap(a, b) > 0.7 {
		return model.Invalid("content_duplication", "character overlap exceeds 0.7")
	}
	return model.Valid()
}

// Rule 10: tone contradiction. A positive-lexicon weather comment paired
// with a negative-lexicon advice comment (or vice versa) is rejected unless
// the advice is in the "encouraging" lexicon.
func (e *Engine) checkToneContradiction(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	wPositive := containsAny(weatherComment.CommentText, e.Lexicon.PositiveWords)
	wNegative := containsAny(weatherComment.CommentText, e.Lexicon.NegativeWords)
	aPositive := containsAny(adviceComment.CommentText, e.Lexicon.PositiveWords)
	aNegative := containsAny(adviceComment.CommentText, e.Lexicon.NegativeWords)
	encouraging := containsAny(adviceComment.CommentText, e.Lexicon.EncouragingWords)

	if (wPositive && aNegative) || (wNegative && aPositive) {
		if !encouraging {
			return model.Invalid("tone_contradiction", "weather and advice comments clash in tone")
		}
	}
	return model.Valid()
}

// Rule 11: umbrella redundancy. Any pair where both parts assert
// umbrella-necessity is rejected; a lone umbrella mention with negligible
// precipitation under a clear sky is also rejected.
func (e *Engine) checkUmbrellaRedundancy(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	wUmbrella := containsAny(weatherComment.CommentText, e.Lexicon.UmbrellaWords)
	aUmbrella := containsAny(adviceComment.CommentText, e.Lexicon.UmbrellaWords)
	if wUmbrella && aUmbrella {
		return model.Invalid("umbrella_redundancy", "both comments assert umbrella necessity")
	}
	if (wUmbrella || aUmbrella) && weather.Precipitation < 0.1 && weather.Condition == model.ConditionClear {
		return model.Invalid("umbrella_redundancy", "umbrella mentioned despite clear sky and negligible precipitation")
	}
	return model.Valid()
}

// Rule 12: time-temperature. Night hours (20-05) forbid "日差し" language;
// day hours (10-15) forbid "星空"/"月明かり" language.
func (e *Engine) checkTimeTemperature(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	hour := weather.Timestamp.Hour()
	combined := weatherComment.CommentText + adviceComment.CommentText
	if HourInWindow(hour, 20, 5) && containsAny(combined, e.Lexicon.NightForbidden) {
		return model.Invalid("time_temperature", "daylight wording forbidden during night hours")
	}
	if HourInWindow(hour, 10, 15) && containsAny(combined, e.Lexicon.DayForbidden) {
		return model.Invalid("time_temperature", "nighttime wording forbidden during daytime hours")
	}
	return model.Valid()
}

// Rule 13: continuous rain. If at least continuousRainThreshold of the
// report-hour forecasts show rain, light-rain wording ("にわか雨" etc.) is
// rejected (spec §9 Open Question: config constant is authoritative).
func (e *Engine) checkContinuousRain(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	if len(periods) < 4 {
		return model.Valid()
	}
	rainyCount := 0
	for _, f := range periods {
		if f.Precipitation >= 0.1 || strings.Contains(string(f.Condition), "RAIN") {
			rainyCount++
		}
	}
	if rainyCount < continuousRainThreshold {
		return model.Valid()
	}
	combined := weatherComment.CommentText + adviceComment.CommentText
	for _, word := range e.Lexicon.LightRainWords {
		if strings.Contains(combined, word) {
			return model.Invalid("continuous_rain", "light-rain wording \""+word+"\" forbidden during continuous rain")
		}
	}
	return model.Valid()
}

// Rule 14: seasonal appropriateness. Month-dependent banned terms, e.g.
// "残暑" valid only Sep-Nov, "初雪" invalid Jun-Sep.
func (e *Engine) checkSeasonalAppropriateness(weatherComment, adviceComment model.PastComment, weather model.Forecast, periods []model.Forecast) model.ValidationResult {
	month := int(weather.Timestamp.Month())
	combined := weatherComment.CommentText + adviceComment.CommentText
	for term, allowedMonths := range e.Lexicon.SeasonalTerms {
		if !strings.Contains(combined, term) {
			continue
		}
		allowed := false
		for _, m := range allowedMonths {
			if m == month {
				allowed = true
				break
			}
		}
		if !allowed {
			return model.Invalid("seasonal_appropriateness", "term \""+term+"\" not valid in month "+itoa(month))
		}
	}
	return model.Valid()
}

func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '。', '、', '！', '？', '「', '」', '　', ' ', '.', ',', '!', '?':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jaccardCharOverlap computes a Jaccard-like overlap ratio between the
// rune sets of two short strings (spec §4.5.9).
func jaccardCharOverlap(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range s {
		set[r] = true
	}
	return set
}
