package saferewrite

import (
	"testing"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

func TestRewrite_SunnyRejectsChangeableSky(t *testing.T) {
	weather := model.Forecast{WeatherDescription: "晴れ", Precipitation: 0, Temperature: 25}
	finder := CandidateFinder{WeatherCandidates: []model.PastComment{{CommentText: "爽やかな青空が広がります"}}}

	w, _ := Rewrite(weather, "変わりやすい空模様です", "", nil, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), finder)

	if w != "爽やかな青空が広がります" {
		t.Fatalf("expected replacement comment, got %q", w)
	}
}

func TestRewrite_RainyLowTempRejectsHeatstrokeAdvice(t *testing.T) {
	weather := model.Forecast{WeatherDescription: "雨", Temperature: 18}
	finder := CandidateFinder{AdviceCandidates: []model.PastComment{{CommentText: "傘をお忘れなく"}}}

	_, a := Rewrite(weather, "雨が降ります", "熱中症に注意しましょう", nil, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), finder)

	if a != "傘をお忘れなく" {
		t.Fatalf("expected rain-appropriate advice, got %q", a)
	}
}

func TestRewrite_ContinuousRainRejectsShowerWording(t *testing.T) {
	weather := model.Forecast{WeatherDescription: "雨", Precipitation: 2}
	period := make([]model.Forecast, 4)
	for i := range period {
		period[i] = model.Forecast{WeatherDescription: "雨", Precipitation: 2}
	}
	finder := CandidateFinder{WeatherCandidates: []model.PastComment{{CommentText: "本降りの雨が続きます"}}}

	w, _ := Rewrite(weather, "にわか雨に注意", "", period, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), finder)

	if w != "本降りの雨が続きます" {
		t.Fatalf("expected continuous-rain replacement, got %q", w)
	}
}

func TestRewrite_SeasonalLateSummerHeatReplacedInSummer(t *testing.T) {
	weather := model.Forecast{WeatherDescription: "晴れ", Temperature: 30}
	w, _ := Rewrite(weather, "残暑が厳しいです", "", nil, time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC), CandidateFinder{})

	if w != "暑さが厳しいです" {
		t.Fatalf("expected 残暑->暑さ substitution, got %q", w)
	}
}

func TestRewrite_NoTriggerLeavesCommentsUnchanged(t *testing.T) {
	weather := model.Forecast{WeatherDescription: "晴れ", Temperature: 22, Precipitation: 0}
	w, a := Rewrite(weather, "穏やかな一日です", "水分補給を忘れずに", nil, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), CandidateFinder{})

	if w != "穏やかな一日です" || a != "水分補給を忘れずに" {
		t.Fatalf("expected comments unchanged, got w=%q a=%q", w, a)
	}
}
