package pairselect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-alert-service/internal/commentvalidation"
	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// stubProvider is a fixed-response llm.Provider double: selectIndex answers
// candidate-index prompts, contradictionAnswer answers yes/no re-check
// prompts (spec §4.6.3-5).
type stubProvider struct {
	selectIndex         string
	contradictionAnswer string
}

func (s stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if containsAny(prompt, "矛盾しますか") {
		return s.contradictionAnswer, nil
	}
	return s.selectIndex, nil
}

func containsAny(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func newTestSelector() *Selector {
	return New(commentvalidation.New(commentvalidation.DefaultLexicon()))
}

func TestSelectOptimalPair_HappyPath(t *testing.T) {
	sel := newTestSelector()
	weather := model.Forecast{
		Condition:          model.ConditionClear,
		WeatherDescription: "晴れ",
		Temperature:        22,
		Humidity:           50,
	}
	weatherComments := []model.PastComment{
		{CommentText: "爽やかな青空です", WeatherText: "晴れ"},
	}
	adviceComments := []model.PastComment{
		{CommentText: "日差し対策をしましょう"},
	}
	provider := stubProvider{selectIndex: "0", contradictionAnswer: "いいえ"}

	pair, err := sel.SelectOptimalPair(context.Background(), provider, weatherComments, adviceComments, weather, "東京", time.Now(), nil)

	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "爽やかな青空です", pair.WeatherComment.CommentText)
	assert.Equal(t, "日差し対策をしましょう", pair.AdviceComment.CommentText)
}

func TestSelectOptimalPair_EmptyCandidatesReturnsNilNoError(t *testing.T) {
	sel := newTestSelector()
	weather := model.Forecast{Condition: model.ConditionClear, WeatherDescription: "晴れ"}
	provider := stubProvider{selectIndex: "0", contradictionAnswer: "いいえ"}

	pair, err := sel.SelectOptimalPair(context.Background(), provider, nil, nil, weather, "東京", time.Now(), nil)

	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestSelectOptimalPair_ExcludesPreviousComments(t *testing.T) {
	sel := newTestSelector()
	weather := model.Forecast{Condition: model.ConditionClear, WeatherDescription: "晴れ", Temperature: 20}
	weatherComments := []model.PastComment{
		{CommentText: "穏やかな一日です"},
	}
	adviceComments := []model.PastComment{
		{CommentText: "水分補給を忘れずに"},
	}
	state := &model.GenerationState{
		ExcludePrevious: true,
		PrevWeatherText: "穏やかな一日です",
	}
	provider := stubProvider{selectIndex: "0", contradictionAnswer: "いいえ"}

	pair, err := sel.SelectOptimalPair(context.Background(), provider, weatherComments, adviceComments, weather, "東京", time.Now(), state)

	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestParseIndex_LabelledAndBareForms(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     int
		ok       bool
	}{
		{"exact", "2", 2, true},
		{"leading", "1です", 1, true},
		{"labelled_colon", "答え: 3", 3, true},
		{"labelled_number", "2番がよいと思います", 2, true},
		{"out_of_range_falls_through", "99", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseIndex(tc.response, 4)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestRankCandidates_SevereMatchFirst(t *testing.T) {
	weather := model.Forecast{Condition: model.ConditionStorm, WeatherDescription: "嵐"}
	comments := []model.PastComment{
		{CommentText: "穏やかな天気です", WeatherText: "晴れ"},
		{CommentText: "嵐に警戒してください", WeatherText: "嵐"},
	}
	ranked := rankCandidates(comments, weather)
	require.Len(t, ranked, 2)
	assert.Equal(t, "嵐に警戒してください", ranked[0].CommentText)
}

func TestSelectOptimalPair_NeverPicksCommentFailingValidation(t *testing.T) {
	sel := newTestSelector()
	// Rain weather: a "青空" (blue sky) comment violates rule 1, so it is
	// ranked below the rain-matching comment and dropped by the per-comment
	// validation pre-filter before the LLM sees the candidate list; the
	// selected pair must not carry it.
	weather := model.Forecast{Condition: model.ConditionRain, WeatherDescription: "雨", Temperature: 18, Precipitation: 3}
	weatherComments := []model.PastComment{
		{CommentText: "青空が広がる一日です", WeatherText: "晴れ"},
		{CommentText: "雨が降り続きます", WeatherText: "雨"},
	}
	adviceComments := []model.PastComment{
		{CommentText: "傘をお持ちください"},
	}
	provider := stubProvider{selectIndex: "0", contradictionAnswer: "いいえ"}

	pair, err := sel.SelectOptimalPair(context.Background(), provider, weatherComments, adviceComments, weather, "東京", time.Now(), nil)

	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotContains(t, pair.WeatherComment.CommentText, "青空")
}
