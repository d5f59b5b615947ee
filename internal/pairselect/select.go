// Package pairselect implements the LLM-driven pair selector from spec
// §4.6: candidate ranking, prompt construction, response parsing, a
// contradiction re-check, and fallback loops. Grounded on
// original_source's nodes/comment_selector/base_selector.py and
// llm_selector.py.
package pairselect

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/commentvalidation"
	"github.com/kjstillabower/weather-alert-service/internal/llm"
	"github.com/kjstillabower/weather-alert-service/internal/model"
)

const (
	preRankCap             = 100
	postRankCap            = 50
	maxAlternativeAttempts = 10
	maxReSelectAttempts    = 3
)

// Selector chooses the final (weather_comment, advice_comment) pair.
type Selector struct {
	validator *commentvalidation.Engine
}

// New constructs a Selector.
func New(validator *commentvalidation.Engine) *Selector {
	return &Selector{validator: validator}
}

// SelectOptimalPair runs the full algorithm from spec §4.6.
func (s *Selector) SelectOptimalPair(
	ctx context.Context,
	provider llm.Provider,
	weatherComments, adviceComments []model.PastComment,
	weather model.Forecast,
	location string,
	targetDatetime time.Time,
	state *model.GenerationState,
) (*model.CommentPair, error) {
	// 1. Drop previously-emitted comments if exclude_previous, plus any
	// candidates the orchestrator has already tried and rejected this
	// request (spec §4.8's retry loop: re-enter select_pair with the
	// failing pair added to the exclusion set).
	if state != nil {
		var excludedWeather, excludedAdvice []string
		if state.ExcludePrevious {
			excludedWeather = append(excludedWeather, state.PrevWeatherText)
			excludedAdvice = append(excludedAdvice, state.PrevAdviceText)
		}
		for _, excluded := range state.ExcludedPairs {
			excludedWeather = append(excludedWeather, excluded.WeatherComment.CommentText)
			excludedAdvice = append(excludedAdvice, excluded.AdviceComment.CommentText)
		}
		weatherComments = excludeText(weatherComments, excludedWeather...)
		adviceComments = excludeText(adviceComments, excludedAdvice...)
	}

	// 2. Rank and cap candidates.
	weatherRanked := rankCandidates(weatherComments, weather)
	adviceRanked := rankCandidates(adviceComments, weather)

	bestWeather, err := s.selectBest(ctx, provider, weatherRanked, weather, location, targetDatetime, model.CommentTypeWeather, state)
	if err != nil {
		return nil, err
	}
	bestAdvice, err := s.selectBest(ctx, provider, adviceRanked, weather, location, targetDatetime, model.CommentTypeAdvice, state)
	if err != nil {
		return nil, err
	}
	if bestWeather == nil || bestAdvice == nil {
		return s.fallbackSelection(weatherComments, adviceComments, weather, state), nil
	}

	if res := s.validator.ValidatePair(*bestWeather, *bestAdvice, weather, state); res.IsValid {
		return &model.CommentPair{WeatherComment: *bestWeather, AdviceComment: *bestAdvice, SimilarityScore: 1.0, SelectionReason: "LLMによる最適選択"}, nil
	}

	if pair := s.selectAlternativeNonDuplicatePair(weatherRanked, adviceRanked, weather, state); pair != nil {
		return pair, nil
	}

	return s.fallbackSelection(weatherComments, adviceComments, weather, state), nil
}

// excludeText drops any comment whose text matches one of the excluded
// strings, trimmed. Used both for the prior request's emitted text
// (ExcludePrevious) and this request's already-rejected candidates
// (ExcludedPairs).
func excludeText(comments []model.PastComment, excluded ...string) []model.PastComment {
	set := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		if e = strings.TrimSpace(e); e != "" {
			set[e] = struct{}{}
		}
	}
	if len(set) == 0 {
		return comments
	}
	out := make([]model.PastComment, 0, len(comments))
	for _, c := range comments {
		if _, skip := set[strings.TrimSpace(c.CommentText)]; !skip {
			out = append(out, c)
		}
	}
	return out
}

// rankCandidates orders comments severe-weather-matched first, then
// weather-description-matched, then others, capping pre-selection at 100
// and post-ranking at 50 (spec §4.6.2).
func rankCandidates(comments []model.PastComment, weather model.Forecast) []model.PastComment {
	if len(comments) > preRankCap {
		comments = comments[:preRankCap]
	}
	type scored struct {
		comment model.PastComment
		rank    int
	}
	scoredList := make([]scored, 0, len(comments))
	for _, c := range comments {
		rank := 2
		if weather.Condition.IsSevere() && strings.Contains(c.CommentText, weather.WeatherDescription) {
			rank = 0
		} else if c.WeatherText == weather.WeatherDescription || c.WeatherText == string(weather.Condition) {
			rank = 1
		}
		scoredList = append(scoredList, scored{c, rank})
	}
	sort.SliceStable(scoredList, func(i, j int) bool { return scoredList[i].rank < scoredList[j].rank })

	out := make([]model.PastComment, 0, len(scoredList))
	for _, s := range scoredList {
		out = append(out, s.comment)
	}
	if len(out) > postRankCap {
		out = out[:postRankCap]
	}
	return out
}

func (s *Selector) selectBest(
	ctx context.Context,
	provider llm.Provider,
	candidates []model.PastComment,
	weather model.Forecast,
	location string,
	targetDatetime time.Time,
	commentType model.CommentType,
	state *model.GenerationState,
) (*model.PastComment, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	// Pre-filter to candidates passing the per-comment validation battery.
	var filtered []model.PastComment
	for _, c := range candidates {
		if res := s.validator.Validate(c, weather); res.IsValid {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(filtered, weather, location, targetDatetime, commentType, state)
	response, err := provider.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("pairselect: llm generate: %w", err)
	}
	idx, ok := parseIndex(response, len(filtered))
	if !ok {
		idx = 0
	}

	for attempt := 0; attempt < maxReSelectAttempts; attempt++ {
		candidate := filtered[idx]
		ok, err := s.reValidateViaLLM(ctx, provider, candidate, weather)
		if err == nil && ok {
			return &candidate, nil
		}
		idx = (idx + 1) % len(filtered)
	}
	result := filtered[idx]
	return &result, nil
}

// buildPrompt constructs the numbered-candidate-list prompt plus serialized
// weather context, per spec §4.6.3.
func buildPrompt(candidates []model.PastComment, weather model.Forecast, location string, targetDatetime time.Time, commentType model.CommentType, state *model.GenerationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "地点: %s\n", location)
	fmt.Fprintf(&b, "日時: %s\n", targetDatetime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "天気: %s, 気温: %.1f度, 湿度: %.0f%%, 降水量: %.1fmm/h\n", weather.WeatherDescription, weather.Temperature, weather.Humidity, weather.Precipitation)
	if state != nil && len(state.PeriodForecasts) > 0 {
		b.WriteString("時間帯予報: ")
		for _, f := range state.PeriodForecasts {
			fmt.Fprintf(&b, "[%s %.1f度 %s] ", f.Timestamp.Format("15:04"), f.Temperature, f.WeatherDescription)
		}
		b.WriteString("\n")
	}
	b.WriteString("以下の候補から最も適切なものの番号のみを回答してください。\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d: %s (使用回数: %d)\n", i, c.CommentText, c.UsageCount)
	}
	return b.String()
}

var (
	labelledPattern = regexp.MustCompile(`(?:答え|選択)\s*[:：]\s*(\d+)|(\d+)\s*番`)
	leadingInt      = regexp.MustCompile(`^\s*(\d+)`)
	anyInt          = regexp.MustCompile(`\d+`)
)

// parseIndex parses the LLM response into a candidate index, trying in
// order: exact-integer match, leading integer, labelled-number patterns,
// first in-range number found (spec §4.6.4).
func parseIndex(response string, n int) (int, bool) {
	trimmed := strings.TrimSpace(response)
	if v, err := strconv.Atoi(trimmed); err == nil && v >= 0 && v < n {
		return v, true
	}
	if m := leadingInt.FindStringSubmatch(trimmed); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v >= 0 && v < n {
			return v, true
		}
	}
	if m := labelledPattern.FindStringSubmatch(trimmed); m != nil {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			if v, err := strconv.Atoi(g); err == nil && v >= 0 && v < n {
				return v, true
			}
		}
	}
	for _, g := range anyInt.FindAllString(trimmed, -1) {
		if v, err := strconv.Atoi(g); err == nil && v >= 0 && v < n {
			return v, true
		}
	}
	return 0, false
}

// reValidateViaLLM asks a lightweight yes/no contradiction-check prompt
// (spec §4.6.5).
func (s *Selector) reValidateViaLLM(ctx context.Context, provider llm.Provider, candidate model.PastComment, weather model.Forecast) (bool, error) {
	prompt := fmt.Sprintf("次のコメントは天気（%s, %.1f度）と矛盾しますか？「%s」 はい/いいえ で答えてください。", weather.WeatherDescription, weather.Temperature, candidate.CommentText)
	resp, err := provider.Generate(ctx, prompt)
	if err != nil {
		return false, err
	}
	resp = strings.TrimSpace(resp)
	return !strings.Contains(resp, "はい") && !strings.Contains(strings.ToLower(resp), "yes"), nil
}

// selectAlternativeNonDuplicatePair iterates ranked candidate pairs up to
// maxAlternativeAttempts times looking for one that survives full pair
// validation (spec §4.6.6).
func (s *Selector) selectAlternativeNonDuplicatePair(weatherCandidates, adviceCandidates []model.PastComment, weather model.Forecast, state *model.GenerationState) *model.CommentPair {
	if len(weatherCandidates) == 0 || len(adviceCandidates) == 0 {
		return nil
	}
	attempts := maxAlternativeAttempts
	if len(weatherCandidates) < attempts {
		attempts = len(weatherCandidates)
	}
	if len(adviceCandidates) < attempts {
		attempts = len(adviceCandidates)
	}
	for attempt := 0; attempt < attempts; attempt++ {
		w := weatherCandidates[attempt%len(weatherCandidates)]
		a := adviceCandidates[attempt%len(adviceCandidates)]
		if res := s.validator.ValidatePair(w, a, weather, state); res.IsValid {
			return &model.CommentPair{WeatherComment: w, AdviceComment: a, SimilarityScore: 0.8, SelectionReason: fmt.Sprintf("重複回避代替選択（試行%d回目）", attempt+1)}
		}
	}
	return nil
}

// fallbackSelection implements the last-resort rain-specific and
// first-candidate fallbacks (spec §4.6.7). Every pair returned here still
// passes through ValidatePair (spec §4.9's invariant that every emitted
// pair validates) — a candidate that fails validation is discarded rather
// than emitted, falling through to the next fallback tier or nil.
func (s *Selector) fallbackSelection(weatherComments, adviceComments []model.PastComment, weather model.Forecast, state *model.GenerationState) *model.CommentPair {
	if weather.Precipitation > 0 {
		w := findFirstContaining(weatherComments, []string{"雨", "降水", "にわか雨", "傘"})
		a := findFirstContaining(adviceComments, []string{"傘", "雨具", "濡れ", "雨対策"})
		if w != nil && a != nil {
			if res := s.validator.ValidatePair(*w, *a, weather, state); res.IsValid {
				return &model.CommentPair{WeatherComment: *w, AdviceComment: *a, SimilarityScore: 0.5, SelectionReason: "雨天時フォールバック"}
			}
		}
	}
	wCap, aCap := weatherComments, adviceComments
	if len(wCap) > postRankCap {
		wCap = wCap[:postRankCap]
	}
	if len(aCap) > postRankCap {
		aCap = aCap[:postRankCap]
	}
	for i := range wCap {
		for j := range aCap {
			if res := s.validator.ValidatePair(wCap[i], aCap[j], weather, state); res.IsValid {
				return &model.CommentPair{WeatherComment: wCap[i], AdviceComment: aCap[j], SimilarityScore: 0.3, SelectionReason: "最終フォールバック"}
			}
		}
	}
	return nil
}

func findFirstContaining(comments []model.PastComment, keywords []string) *model.PastComment {
	for i, c := range comments {
		for _, kw := range keywords {
			if strings.Contains(c.CommentText, kw) {
				return &comments[i]
			}
		}
	}
	if len(comments) > 0 {
		return &comments[0]
	}
	return nil
}
