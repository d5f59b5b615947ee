// Package saferewrite implements the post-selection safety rewrite pass
// from spec §4.7: a fixed sequence of consistency checks run against the
// already-selected pair, each substituting an alternative comment (drawn
// from the same candidate pool) rather than rejecting the request.
//
// Grounded on original_source's
// nodes/helpers/comment_safety.py,
// nodes/helpers/safety_checks/weather_consistency.py,
// nodes/helpers/safety_checks/rain_context.py, and
// nodes/helpers/safety_checks/seasonal_appropriateness.py.
package saferewrite

import (
	"strings"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

var (
	sunnyDescriptions        = []string{"晴", "快晴"}
	changeableSky            = []string{"変わりやすい", "天気急変", "不安定", "めまぐるしく"}
	sunnyInapproRain         = []string{"雨", "降水", "傘"}
	sunnyInapproCloudy       = []string{"曇", "くもり"}
	cloudyDescriptions       = []string{"曇", "くもり", "うすぐもり"}
	cloudyInapproSun         = []string{"強い日差し", "ぎらぎら", "炎天下"}
	rainInapproSunny         = []string{"晴れ", "快晴", "日差し"}
	rainInapproCloudy        = []string{"曇り", "うすぐもり"}
	showerRainPatterns       = []string{"にわか雨"}
	stableWeatherChangeWords = []string{"変わりやすい", "天気急変", "不安定", "変化", "急変", "めまぐるしく"}

	seasonalInappropriate = map[string][]string{
		"spring": {"梅雨", "真夏", "猛暑", "師走", "年末", "初雪", "真冬"},
		"summer": {"初雪", "雪", "真冬", "厳寒", "凍結", "霜", "初霜", "紅葉", "落ち葉"},
		"autumn": {"真夏", "猛暑", "梅雨", "初雪", "真冬", "厳寒"},
		"winter": {"猛暑", "真夏", "梅雨", "桜", "新緑", "紅葉"},
	}
)

const precipitationThresholdSunny = 1.0

// CandidateFinder locates a replacement comment avoiding a set of
// disallowed substrings, drawn from the pool passed to Rewrite.
type CandidateFinder struct {
	WeatherCandidates []model.PastComment
	AdviceCandidates  []model.PastComment
}

func (f CandidateFinder) findWeatherAvoiding(disallowed []string, fallback string) string {
	for _, c := range f.WeatherCandidates {
		if !containsAny(c.CommentText, disallowed) {
			return c.CommentText
		}
	}
	return fallback
}

func (f CandidateFinder) findAdviceContaining(required []string, fallback string) string {
	for _, c := range f.AdviceCandidates {
		if containsAny(c.CommentText, required) {
			return c.CommentText
		}
	}
	return fallback
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func firstMatch(text string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// Rewrite runs the fixed six-check sequence from spec §4.7 over the
// selected pair, substituting text in place whenever a check fires. It
// never fails; a check that finds no safe replacement leaves the
// original text.
func Rewrite(weather model.Forecast, weatherComment, adviceComment string, periodForecasts []model.Forecast, target time.Time, finder CandidateFinder) (string, string) {
	// 1. Sunny-weather consistency.
	if containsAny(weather.WeatherDescription, sunnyDescriptions) && weatherComment != "" {
		if _, ok := firstMatch(weatherComment, changeableSky); ok {
			weatherComment = finder.findWeatherAvoiding(changeableSky, weatherComment)
		} else if weather.Precipitation < precipitationThresholdSunny {
			if _, ok := firstMatch(weatherComment, sunnyInapproRain); ok {
				weatherComment = finder.findWeatherAvoiding(sunnyInapproRain, weatherComment)
			}
		}
		if _, ok := firstMatch(weatherComment, sunnyInapproCloudy); ok {
			weatherComment = finder.findWeatherAvoiding(sunnyInapproCloudy, weatherComment)
		}
	}

	// 2. Rainy-weather consistency.
	if strings.Contains(weather.WeatherDescription, "雨") && weatherComment != "" {
		if _, ok := firstMatch(weatherComment, rainInapproSunny); ok {
			weatherComment = finder.findWeatherAvoiding(rainInapproSunny, weatherComment)
		} else if _, ok := firstMatch(weatherComment, rainInapproCloudy); ok {
			weatherComment = finder.findWeatherAvoiding(rainInapproCloudy, weatherComment)
		} else if adviceComment != "" && weather.Temperature < 30.0 && strings.Contains(adviceComment, "熱中症") {
			adviceComment = finder.findAdviceContaining([]string{"傘", "雨具", "濡れ"}, adviceComment)
		} else if (strings.Contains(weather.WeatherDescription, "大雨") || strings.Contains(weather.WeatherDescription, "嵐")) && strings.Contains(weatherComment, "ムシムシ") {
			weatherComment = finder.findWeatherAvoiding([]string{"ムシムシ"}, weatherComment)
		}
	}

	// 3. Cloudy-weather consistency.
	if containsAny(weather.WeatherDescription, cloudyDescriptions) && weatherComment != "" {
		if _, ok := firstMatch(weatherComment, cloudyInapproSun); ok {
			weatherComment = finder.findWeatherAvoiding(cloudyInapproSun, weatherComment)
		}
	}

	// 4. Continuous-rain context: "にわか雨" is inappropriate once rain has
	// persisted across the report window.
	if weatherComment != "" && isContinuousRain(periodForecasts) {
		if _, ok := firstMatch(weatherComment, showerRainPatterns); ok {
			weatherComment = finder.findWeatherAvoiding(showerRainPatterns, weatherComment)
		}
	}

	// 5. Stability: all report-hour forecasts share one description, so
	// "changeable sky" language is inappropriate.
	if weatherComment != "" && len(periodForecasts) >= 4 && allSameDescription(periodForecasts) {
		if _, ok := firstMatch(weatherComment, stableWeatherChangeWords); ok {
			weatherComment = finder.findWeatherAvoiding(stableWeatherChangeWords, weatherComment)
		}
	}

	// 6. Seasonal appropriateness.
	if weatherComment != "" {
		month := int(target.Month())
		if strings.Contains(weatherComment, "残暑") {
			if month == 6 || month == 7 || month == 8 {
				weatherComment = strings.ReplaceAll(weatherComment, "残暑", "暑さ")
			} else if month != 9 && month != 10 && month != 11 {
				weatherComment = finder.findWeatherAvoiding([]string{"残暑"}, weatherComment)
			}
		}
		season := seasonKey(month)
		if inappropriate, ok := seasonalInappropriate[season]; ok {
			if _, found := firstMatch(weatherComment, inappropriate); found {
				weatherComment = finder.findWeatherAvoiding(inappropriate, weatherComment)
			}
		}
	}

	return weatherComment, adviceComment
}

func seasonKey(month int) string {
	switch {
	case month >= 3 && month <= 5:
		return "spring"
	case month >= 6 && month <= 8:
		return "summer"
	case month >= 9 && month <= 11:
		return "autumn"
	default:
		return "winter"
	}
}

const continuousRainMinHours = 4
const precipitationThresholdRain = 0.1

func isContinuousRain(periodForecasts []model.Forecast) bool {
	if len(periodForecasts) == 0 {
		return false
	}
	rainHours := 0
	for _, f := range periodForecasts {
		if strings.Contains(f.WeatherDescription, "雨") || f.Precipitation >= precipitationThresholdRain {
			rainHours++
		}
	}
	return rainHours >= continuousRainMinHours
}

func allSameDescription(periodForecasts []model.Forecast) bool {
	if len(periodForecasts) == 0 {
		return false
	}
	first := periodForecasts[0].WeatherDescription
	for _, f := range periodForecasts[1:] {
		if f.WeatherDescription != first {
			return false
		}
	}
	return true
}
