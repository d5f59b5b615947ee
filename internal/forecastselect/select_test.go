package forecastselect

import (
	"testing"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

func hourAt(h int, cond model.WeatherCondition, temp, precip float64) model.Forecast {
	return model.Forecast{
		Timestamp:     time.Date(2026, 7, 30, h, 0, 0, 0, time.UTC),
		Condition:     cond,
		Temperature:   temp,
		Precipitation: precip,
	}
}

// Scenario 1 from spec §8: rain beats heat.
func TestSelectPriority_RainBeatsHeat(t *testing.T) {
	hours := []model.Forecast{
		hourAt(9, model.ConditionClear, 30, 0),
		hourAt(12, model.ConditionExtremeHeat, 35, 0),
		hourAt(15, model.ConditionRain, 34, 5),
		hourAt(18, model.ConditionRain, 32, 3),
	}
	got, ok := SelectPriority(hours)
	if !ok {
		t.Fatal("SelectPriority() ok = false")
	}
	if got.Timestamp.Hour() != 15 {
		t.Errorf("SelectPriority() hour = %d, want 15", got.Timestamp.Hour())
	}
}

// Scenario 2 from spec §8: heavy rain overrides all.
func TestSelectPriority_HeavyRainOverridesHeat(t *testing.T) {
	hours := []model.Forecast{
		hourAt(9, model.ConditionRain, 28, 12),
		hourAt(12, model.ConditionExtremeHeat, 36, 0),
	}
	got, ok := SelectPriority(hours)
	if !ok || got.Precipitation != 12 {
		t.Errorf("SelectPriority() = %+v, want the 12mm/h forecast", got)
	}
}

func TestSelectPriority_SevereConditionWinsOverAll(t *testing.T) {
	hours := []model.Forecast{
		hourAt(9, model.ConditionClear, 20, 0),
		hourAt(12, model.ConditionThunder, 25, 2),
		hourAt(15, model.ConditionExtremeHeat, 36, 0),
	}
	got, ok := SelectPriority(hours)
	if !ok || got.Condition != model.ConditionThunder {
		t.Errorf("SelectPriority() condition = %v, want THUNDER", got.Condition)
	}
}

func TestSelectPriority_AllClear_PicksHighestTemp(t *testing.T) {
	hours := []model.Forecast{
		hourAt(9, model.ConditionClear, 22, 0),
		hourAt(12, model.ConditionClear, 28, 0),
		hourAt(15, model.ConditionClear, 26, 0),
	}
	got, ok := SelectPriority(hours)
	if !ok || got.Temperature != 28 {
		t.Errorf("SelectPriority() temp = %v, want 28", got.Temperature)
	}
}

func TestIsContinuousRain(t *testing.T) {
	rainy := []model.Forecast{
		hourAt(9, model.ConditionRain, 20, 1),
		hourAt(12, model.ConditionRain, 20, 1),
		hourAt(15, model.ConditionRain, 20, 1),
		hourAt(18, model.ConditionRain, 20, 1),
	}
	if !IsContinuousRain(rainy, ContinuousRainThresholdHours) {
		t.Error("IsContinuousRain() = false, want true for 4/4 rainy hours")
	}

	threeOfFour := rainy[:3]
	if IsContinuousRain(threeOfFour, ContinuousRainThresholdHours) {
		t.Error("IsContinuousRain() = true, want false for 3 rainy hours")
	}
}

func TestTargetDate_BeforeSixIsToday_OtherwiseTomorrow(t *testing.T) {
	early := time.Date(2026, 7, 30, 3, 0, 0, 0, time.UTC)
	if got := TargetDate(early); got.Day() != 30 {
		t.Errorf("TargetDate(03:00) day = %d, want 30", got.Day())
	}
	late := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	if got := TargetDate(late); got.Day() != 31 {
		t.Errorf("TargetDate(09:00) day = %d, want 31", got.Day())
	}
}
