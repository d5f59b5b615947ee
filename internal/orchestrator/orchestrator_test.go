package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/commentrepo"
	"github.com/kjstillabower/weather-alert-service/internal/commentvalidation"
	"github.com/kjstillabower/weather-alert-service/internal/llm"
	"github.com/kjstillabower/weather-alert-service/internal/model"
)

type fakeWeatherClient struct {
	collection model.ForecastCollection
	err        error
}

func (f fakeWeatherClient) FetchNextDayHours(ctx context.Context, location string, lat, lon float64) (model.ForecastCollection, error) {
	return f.collection, f.err
}

type fakeLLMProvider struct{ response string }

func (f fakeLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return f.response, nil
}

type fakeResolver struct{ provider llm.Provider }

func (f fakeResolver) Get(ctx context.Context, provider model.LLMProvider) (llm.Provider, error) {
	return f.provider, nil
}

func writeCorpus(t *testing.T, dir, season string, commentType model.CommentType, rows [][2]string) {
	t.Helper()
	path := filepath.Join(dir, season+"_"+string(commentType)+"_enhanced100.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var col string
	if commentType == model.CommentTypeWeather {
		col = "weather_comment"
	} else {
		col = "advice"
	}
	f.WriteString(col + ",count\n")
	for _, row := range rows {
		f.WriteString(row[0] + "," + row[1] + "\n")
	}
}

func TestPipeline_Generate_HappyPath(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "夏", model.CommentTypeWeather, [][2]string{{"爽やかな青空です", "1"}})
	writeCorpus(t, dir, "夏", model.CommentTypeAdvice, [][2]string{{"水分補給を忘れずに", "1"}})

	target := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	collection := model.ForecastCollection{
		Location: "東京",
		Forecasts: []model.Forecast{
			{Location: "東京", Timestamp: target.Add(9 * time.Hour), Temperature: 28, WeatherDescription: "晴れ", Condition: model.ConditionClear, Humidity: 50},
			{Location: "東京", Timestamp: target.Add(12 * time.Hour), Temperature: 30, WeatherDescription: "晴れ", Condition: model.ConditionClear, Humidity: 50},
			{Location: "東京", Timestamp: target.Add(15 * time.Hour), Temperature: 31, WeatherDescription: "晴れ", Condition: model.ConditionClear, Humidity: 50},
			{Location: "東京", Timestamp: target.Add(18 * time.Hour), Temperature: 27, WeatherDescription: "晴れ", Condition: model.ConditionClear, Humidity: 50},
		},
	}

	repo := commentrepo.New(dir, time.Minute)
	validator := commentvalidation.New(commentvalidation.DefaultLexicon())
	resolver := fakeResolver{provider: fakeLLMProvider{response: "0"}}
	pipeline := New(fakeWeatherClient{collection: collection}, repo, validator, resolver)

	state, err := pipeline.Generate(context.Background(), "東京", 35.6, 139.6, time.Date(2026, 7, 14, 7, 0, 0, 0, time.UTC), model.ProviderOpenAI, false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Success {
		t.Fatalf("expected success, got errors: %+v", state.Errors)
	}
	if state.FinalComment == "" {
		t.Fatal("expected a non-empty final comment")
	}
}

func TestPipeline_Generate_InvalidLocationFailsFast(t *testing.T) {
	dir := t.TempDir()
	repo := commentrepo.New(dir, time.Minute)
	validator := commentvalidation.New(commentvalidation.DefaultLexicon())
	resolver := fakeResolver{provider: fakeLLMProvider{response: "0"}}
	pipeline := New(fakeWeatherClient{}, repo, validator, resolver)

	state, err := pipeline.Generate(context.Background(), "", 0, 0, time.Now(), model.ProviderOpenAI, false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Success {
		t.Fatal("expected failure for empty location")
	}
	if len(state.Errors) == 0 || state.Errors[0].Kind != model.ErrKindLocation {
		t.Fatalf("expected location error, got %+v", state.Errors)
	}
}

func TestPipeline_Generate_WeatherFetchFailureIsNonFatalToPanic(t *testing.T) {
	dir := t.TempDir()
	repo := commentrepo.New(dir, time.Minute)
	validator := commentvalidation.New(commentvalidation.DefaultLexicon())
	resolver := fakeResolver{provider: fakeLLMProvider{response: "0"}}
	pipeline := New(fakeWeatherClient{err: context.DeadlineExceeded}, repo, validator, resolver)

	state, err := pipeline.Generate(context.Background(), "大阪", 0, 0, time.Now(), model.ProviderOpenAI, false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Success {
		t.Fatal("expected failure when weather fetch errors")
	}
}
