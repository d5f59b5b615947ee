package commentvalidation

import (
	"testing"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

func newEngine() *Engine {
	return New(DefaultLexicon())
}

// Boundary case from spec §8: temperature exactly 34.0 allows "熱中症";
// 33.9 rejects it.
func TestCheckTemperatureBands_HeatstrokeBoundary(t *testing.T) {
	e := newEngine()
	comment := model.PastComment{CommentText: "今日は熱中症に注意"}

	at34 := model.Forecast{Temperature: 34.0, Condition: model.ConditionExtremeHeat}
	if res := e.Validate(comment, at34); !res.IsValid {
		t.Errorf("Validate() at 34.0°C should allow \"熱中症\", got invalid: %s", res.Reason)
	}

	at339 := model.Forecast{Temperature: 33.9, Condition: model.ConditionExtremeHeat}
	if res := e.Validate(comment, at339); res.IsValid {
		t.Errorf("Validate() at 33.9°C should reject \"熱中症\", got valid")
	}
}

// Boundary case from spec §8: humidity exactly 80 forbids "乾燥"; 79.9 allows it.
func TestCheckHumidityBand_Boundary(t *testing.T) {
	e := newEngine()
	comment := model.PastComment{CommentText: "肌の乾燥に注意しましょう"}

	at80 := model.Forecast{Humidity: 80, Temperature: 20}
	if res := e.Validate(comment, at80); res.IsValid {
		t.Errorf("Validate() at humidity=80 should forbid drying word, got valid")
	}

	at799 := model.Forecast{Humidity: 79.9, Temperature: 20}
	if res := e.Validate(comment, at799); !res.IsValid {
		t.Errorf("Validate() at humidity=79.9 should allow drying word, got invalid: %s", res.Reason)
	}
}

// Scenario 5 from spec §8: pollen off-season in July.
func TestCheckPollen_OffSeasonJuly(t *testing.T) {
	e := newEngine()
	comment := model.PastComment{CommentText: "花粉が多く飛散しています"}
	july := model.Forecast{Timestamp: time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC), Condition: model.ConditionClear}

	res := e.Validate(comment, july)
	if res.IsValid {
		t.Fatal("Validate() should reject pollen comment in July")
	}
	if res.ViolatingRule != "pollen" {
		t.Errorf("ViolatingRule = %q, want pollen", res.ViolatingRule)
	}
}

// Scenario 6 from spec §8: Okinawa snow rejection.
func TestCheckRegional_OkinawaRejectsSnow(t *testing.T) {
	e := newEngine()
	comment := model.PastComment{Location: "那覇", CommentText: "雪が積もるでしょう"}
	weather := model.Forecast{Location: "那覇", Condition: model.ConditionClear, Temperature: 25}

	res := e.Validate(comment, weather)
	if res.IsValid {
		t.Fatal("Validate() should reject snow vocabulary for 那覇")
	}
}

func TestSeasonFromMonth_SeptemberIsTyphoon(t *testing.T) {
	if got := SeasonFromMonth(time.September); got != "台風" {
		t.Errorf("SeasonFromMonth(September) = %q, want 台風", got)
	}
	if got := SeasonFromMonth(time.October); got != "秋" {
		t.Errorf("SeasonFromMonth(October) = %q, want 秋", got)
	}
}

func TestCheckContinuousRain_FourOfFourRejectsLightRainWord(t *testing.T) {
	e := newEngine()
	weatherComment := model.PastComment{CommentText: "にわか雨に注意してください"}
	adviceComment := model.PastComment{CommentText: "傘をお持ちください"}
	weather := model.Forecast{Condition: model.ConditionRain, Precipitation: 2}
	periods := []model.Forecast{
		{Precipitation: 1, Condition: model.ConditionRain},
		{Precipitation: 1, Condition: model.ConditionRain},
		{Precipitation: 1, Condition: model.ConditionRain},
		{Precipitation: 1, Condition: model.ConditionRain},
	}

	res := e.checkContinuousRain(weatherComment, adviceComment, weather, periods)
	if res.IsValid {
		t.Fatal("checkContinuousRain() should reject light-rain wording during continuous rain")
	}
}

func TestCheckContentDuplication_IdenticalRejected(t *testing.T) {
	e := newEngine()
	res := e.checkContentDuplication(
		model.PastComment{CommentText: "今日は晴れです"},
		model.PastComment{CommentText: "今日は晴れです"},
		model.Forecast{}, nil,
	)
	if res.IsValid {
		t.Fatal("checkContentDuplication() should reject identical comments")
	}
}

func TestCheckUmbrellaRedundancy_BothAssertRejected(t *testing.T) {
	e := newEngine()
	res := e.checkUmbrellaRedundancy(
		model.PastComment{CommentText: "傘が必要です"},
		model.PastComment{CommentText: "雨具をお忘れなく"},
		model.Forecast{Condition: model.ConditionRain, Precipitation: 5},
		nil,
	)
	if res.IsValid {
		t.Fatal("checkUmbrellaRedundancy() should reject when both comments assert umbrella necessity")
	}
}
