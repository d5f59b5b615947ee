// Package orchestrator implements the pipeline state machine from spec
// §4.9: an explicit, linear sequence of stages threaded through a
// model.GenerationState, with a bounded retry loop around selection and
// a single terminal success/failure outcome. Grounded on
// original_source's nodes/generate_comment_node.py and
// nodes/select_comment_pair_node.py for stage ordering, and on the
// Design Notes' rejection of graph/node-framework control flow in favor
// of an explicit state machine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/commentrepo"
	"github.com/kjstillabower/weather-alert-service/internal/commentvalidation"
	"github.com/kjstillabower/weather-alert-service/internal/forecastselect"
	"github.com/kjstillabower/weather-alert-service/internal/llm"
	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
	"github.com/kjstillabower/weather-alert-service/internal/pairselect"
	"github.com/kjstillabower/weather-alert-service/internal/saferewrite"
	"github.com/kjstillabower/weather-alert-service/internal/validation"
	"github.com/kjstillabower/weather-alert-service/internal/weatherclient"
)

const (
	defaultMaxRetries   = 3
	locationMinLen      = 1
	locationMaxLen      = 100
	commentCapPerBucket = 100
)

// ProviderResolver resolves an LLM backend by enum value. *llm.Registry
// satisfies this; tests substitute a fake to avoid real API calls.
type ProviderResolver interface {
	Get(ctx context.Context, provider model.LLMProvider) (llm.Provider, error)
}

// Pipeline wires the stages (C4-C9) into the single Generate entry point.
type Pipeline struct {
	WeatherClient weatherclient.Client
	Comments      *commentrepo.Repository
	Validator     *commentvalidation.Engine
	Selector      *pairselect.Selector
	LLMRegistry   ProviderResolver
}

// New constructs a Pipeline from its already-wired collaborators.
func New(weatherClient weatherclient.Client, comments *commentrepo.Repository, validator *commentvalidation.Engine, registry ProviderResolver) *Pipeline {
	return &Pipeline{
		WeatherClient: weatherClient,
		Comments:      comments,
		Validator:     validator,
		Selector:      pairselect.New(validator),
		LLMRegistry:   registry,
	}
}

// Generate runs the full pipeline for one request and returns the
// terminal GenerationState. Generate never returns a non-nil error for
// domain failures (a fatal stage marks state.Success = false and records
// the cause in state.Errors); it returns an error only for context
// cancellation.
func (p *Pipeline) Generate(ctx context.Context, locationName string, lat, lon float64, now time.Time, provider model.LLMProvider, excludePrevious bool, prevWeatherText, prevAdviceText string) (*model.GenerationState, error) {
	state := model.NewGenerationState(locationName, lat, lon, forecastselect.TargetDate(now), provider, excludePrevious, defaultMaxRetries)
	state.PrevWeatherText = prevWeatherText
	state.PrevAdviceText = prevAdviceText

	if err := ctx.Err(); err != nil {
		return state, err
	}

	if !timeStage("resolve_location", func() bool { return p.resolveLocation(state) }) {
		recordOutcome(state)
		return state, nil
	}
	if !timeStage("fetch_weather", func() bool { return p.fetchWeather(ctx, state) }) {
		recordOutcome(state)
		return state, nil
	}
	timeStage("analyze_forecast", func() bool { p.analyzeForecast(state); return true })
	if !timeStage("load_comments", func() bool { return p.loadComments(state) }) {
		recordOutcome(state)
		return state, nil
	}

	for state.RetryCount = 0; state.RetryCount <= state.MaxRetryCount; state.RetryCount++ {
		ok := timeStage("select_and_generate", func() bool { return p.selectAndGenerate(ctx, state) })
		if ok {
			state.Success = true
			observability.PipelineRetryCount.Observe(float64(state.RetryCount))
			recordOutcome(state)
			return state, nil
		}
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
	}

	state.Fail("selection", model.ErrKindSelection, "exhausted retries selecting a valid comment pair")
	observability.PipelineRetryCount.Observe(float64(state.RetryCount))
	recordOutcome(state)
	return state, nil
}

// timeStage records wall time for a pipeline stage under its own label,
// returning the stage's success/failure signal unchanged.
func timeStage(stage string, fn func() bool) bool {
	start := time.Now()
	ok := fn()
	observability.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return ok
}

func recordOutcome(state *model.GenerationState) {
	if state.Success {
		observability.PipelineRequestsTotal.WithLabelValues("success").Inc()
	} else {
		observability.PipelineRequestsTotal.WithLabelValues("failure").Inc()
	}
}

func (p *Pipeline) resolveLocation(state *model.GenerationState) bool {
	resolved, err := validation.ValidateLocation(state.LocationName, locationMinLen, locationMaxLen)
	if err != nil {
		state.Fail("resolve_location", model.ErrKindLocation, err.Error())
		return false
	}
	state.ResolvedLocation = resolved
	return true
}

func (p *Pipeline) fetchWeather(ctx context.Context, state *model.GenerationState) bool {
	collection, err := p.WeatherClient.FetchNextDayHours(ctx, state.ResolvedLocation, state.Lat, state.Lon)
	if err != nil {
		state.Fail("fetch_weather", classifyWeatherError(err), err.Error())
		return false
	}
	periodForecasts := forecastselect.ExtractReportHours(collection, state.TargetDatetime)
	if len(periodForecasts) == 0 {
		state.Fail("fetch_weather", model.ErrKindEmptyData, "no forecasts available for target date's report hours")
		return false
	}
	state.PeriodForecasts = periodForecasts

	selected, ok := forecastselect.SelectPriority(periodForecasts)
	if !ok {
		state.Fail("fetch_weather", model.ErrKindEmptyData, "priority selection found no candidate forecast")
		return false
	}
	state.WeatherData = selected
	return true
}

func (p *Pipeline) analyzeForecast(state *model.GenerationState) {
	state.TrendDirection = forecastselect.TrendDirection(state.PeriodForecasts)
}

func (p *Pipeline) loadComments(state *model.GenerationState) bool {
	season := commentvalidation.SeasonFromMonth(state.TargetDatetime.Month())

	weatherComments, err := p.Comments.GetCommentsBySeason(model.CommentTypeWeather, []string{season})
	if err != nil {
		state.AddWarning(fmt.Sprintf("load weather comments for season %s: %v", season, err))
	}
	adviceComments, err := p.Comments.GetCommentsBySeason(model.CommentTypeAdvice, []string{season})
	if err != nil {
		state.AddWarning(fmt.Sprintf("load advice comments for season %s: %v", season, err))
	}

	if len(weatherComments) == 0 {
		weatherComments, _ = p.Comments.GetAllAvailableComments(model.CommentTypeWeather, commentCapPerBucket)
	}
	if len(adviceComments) == 0 {
		adviceComments, _ = p.Comments.GetAllAvailableComments(model.CommentTypeAdvice, commentCapPerBucket)
	}

	if len(weatherComments) == 0 || len(adviceComments) == 0 {
		state.Fail("load_comments", model.ErrKindCorpus, "no candidate comments available for season "+season)
		return false
	}
	state.WeatherComments = weatherComments
	state.AdviceComments = adviceComments
	return true
}

func (p *Pipeline) selectAndGenerate(ctx context.Context, state *model.GenerationState) bool {
	provider, err := p.LLMRegistry.Get(ctx, state.LLMProvider)
	if err != nil {
		state.AddError("select_pair", model.ErrKindLLM, err.Error())
		return false
	}

	pair, err := p.Selector.SelectOptimalPair(ctx, provider, state.WeatherComments, state.AdviceComments, state.WeatherData, state.ResolvedLocation, state.TargetDatetime, state)
	if err != nil {
		state.AddError("select_pair", model.ErrKindSelection, err.Error())
		return false
	}
	if pair == nil {
		state.AddError("select_pair", model.ErrKindSelection, "no candidate pair could be selected")
		return false
	}
	state.SelectedPair = pair

	weatherText := pair.WeatherComment.CommentText
	adviceText := pair.AdviceComment.CommentText
	finder := saferewrite.CandidateFinder{WeatherCandidates: state.WeatherComments, AdviceCandidates: state.AdviceComments}
	weatherText, adviceText = saferewrite.Rewrite(state.WeatherData, weatherText, adviceText, state.PeriodForecasts, state.TargetDatetime, finder)

	rewrittenPair := model.CommentPair{
		WeatherComment: model.PastComment{CommentText: weatherText, WeatherText: pair.WeatherComment.WeatherText},
		AdviceComment:  model.PastComment{CommentText: adviceText},
	}
	if res := p.Validator.ValidatePair(rewrittenPair.WeatherComment, rewrittenPair.AdviceComment, state.WeatherData, state); !res.IsValid {
		state.AddWarning(fmt.Sprintf("select_pair: rewritten pair failed validation (%s), retrying", res.ViolatingRule))
		// Spec §4.8: re-enter select_pair with the failing pair added to the
		// exclusion set so a deterministic LLM does not re-select and re-fail
		// the same candidate on every remaining retry.
		state.ExcludedPairs = append(state.ExcludedPairs, *pair)
		return false
	}

	state.GeneratedComment = assembleComment(weatherText, adviceText)
	state.FinalComment = state.GeneratedComment
	state.Metadata["llm_provider"] = string(state.LLMProvider)
	state.Metadata["temperature"] = state.WeatherData.Temperature
	state.Metadata["weather_condition"] = state.WeatherData.WeatherDescription
	state.Metadata["trend_direction"] = state.TrendDirection
	return true
}

// assembleComment joins the weather and advice parts with a full-width
// space, matching the original's exact separator and fallback behavior
// when one half is missing.
func assembleComment(weatherComment, adviceComment string) string {
	switch {
	case weatherComment != "" && adviceComment != "":
		return weatherComment + "　" + adviceComment
	case weatherComment != "":
		return weatherComment
	case adviceComment != "":
		return adviceComment
	default:
		return "コメントが選択できませんでした"
	}
}

func classifyWeatherError(err error) model.ErrorKind {
	switch {
	case errors.Is(err, weatherclient.ErrAPIKeyMissing):
		return model.ErrKindAPIKeyMissing
	case errors.Is(err, weatherclient.ErrAPIKeyInvalid):
		return model.ErrKindAPIKeyInvalid
	case errors.Is(err, weatherclient.ErrRateLimited):
		return model.ErrKindRateLimit
	case errors.Is(err, weatherclient.ErrLocationNotFound):
		return model.ErrKindLocation
	case errors.Is(err, weatherclient.ErrEmptyData):
		return model.ErrKindEmptyData
	case errors.Is(err, weatherclient.ErrUpstreamFailure):
		return model.ErrKindServer
	default:
		return model.ErrKindNetwork
	}
}
