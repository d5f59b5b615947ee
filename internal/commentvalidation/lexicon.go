package commentvalidation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the externalized word lists consumed by the rule batteries.
// LoadLexicon reads it from a single YAML file (config.LexiconPath);
// DefaultLexicon provides the hard-coded word lists that callers use when
// no path is configured or that file cannot be read or parsed.
type Lexicon struct {
	// Rule 1: weather-condition forbidden words, keyed by weather category.
	WeatherForbidden map[string][]string

	// Rule 2: temperature-band forbidden words.
	TempBandForbidden map[string][]string

	// Rule 3: humidity-band forbidden words.
	DryingWords        []string
	DehumidifyingWords []string

	// Rule 4: regional vocabulary.
	SnowWords        []string
	ExtremeColdWords []string
	ExtremeHeatWords []string
	OkinawaNames     []string
	HokkaidoNames    []string
	CoastalRefPoints []CoastalPoint

	// Rule 5: pollen vocabulary.
	PollenWords []string

	// Rule 6: required-keyword lexicons per severe category.
	HeavyRainTriggerWords []string
	HeavyRainWeatherReq   []string
	HeavyRainAdviceReq    []string
	StormTriggerWords     []string
	StormWeatherReq       []string
	StormAdviceReq        []string

	// Rule 7: weather-reality contradiction words.
	SunnyWords []string
	RainyWords []string
	HotWords   []string
	ColdWords  []string

	// Rule 8: temperature-symptom contradiction words.
	HeatSymptomWords []string
	ColdSymptomWords []string

	// Rule 9: duplication critical keywords.
	CriticalKeywords []string

	// Rule 10: tone lexicons.
	PositiveWords    []string
	NegativeWords    []string
	EncouragingWords []string

	// Rule 11: umbrella vocabulary.
	UmbrellaWords []string

	// Rule 12: time-of-day forbidden words.
	NightForbidden []string
	DayForbidden   []string

	// Rule 13: continuous-rain forbidden words.
	LightRainWords []string

	// Rule 14: seasonal forbidden/allowed terms, keyed by term -> allowed months.
	SeasonalTerms map[string][]int
}

// CoastalPoint is a reference point used by the geodetic coast-distance
// function in rule 4 (spec §4.5: "15 km threshold when lat/lon are
// available").
type CoastalPoint struct {
	Name string
	Lat  float64
	Lon  float64
}

const (
	HeatstrokeWarningTemp = 34.0 // rule 2: "熱中症" requires temp >= this
	HeatstrokeSevereTemp  = 37.0 // very_hot band
	ColdWarningTemp       = 5.0  // rule 2: "凍える" requires temp <= this
	CoastalDistanceKM     = 15.0 // rule 4
)

// LoadLexicon reads a Lexicon from a YAML file (config/validator_words.yaml
// in the spec's layout). Callers fall back to DefaultLexicon on error.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("commentvalidation: read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("commentvalidation: parse lexicon: %w", err)
	}
	return lex, nil
}

// DefaultLexicon is the hard-coded fallback, grounded on
// temperature_validator.py, pollen_validator.py, and weather_comment_validator.py.
func DefaultLexicon() Lexicon {
	return Lexicon{
		WeatherForbidden: map[string][]string{
			"rain":  {"青空", "快晴", "日差したっぷり"},
			"clear": {"変わりやすい空"},
		},
		TempBandForbidden: map[string][]string{
			"cold":          {"熱中症", "猛暑", "酷暑"},
			"mild":          {"熱中症", "凍える", "極寒"},
			"moderate_warm": {"厳しい暑さ", "酷暑", "凍える", "極寒"},
			"hot":           {"凍える", "極寒", "防寒"},
			"very_hot":      {"凍える", "極寒", "防寒"},
		},
		DryingWords:        []string{"乾燥", "乾燥注意", "乾燥対策", "肌の乾燥"},
		DehumidifyingWords: []string{"除湿", "湿気対策"},

		SnowWords:         []string{"雪", "積雪", "吹雪"},
		ExtremeColdWords:  []string{"極寒", "凍える", "厳寒"},
		ExtremeHeatWords:  []string{"猛暑", "酷暑", "熱帯夜"},
		OkinawaNames:      []string{"那覇", "沖縄", "石垣", "宮古"},
		HokkaidoNames:     []string{"札幌", "北海道", "旭川", "函館"},
		CoastalRefPoints: []CoastalPoint{
			{Name: "東京湾", Lat: 35.45, Lon: 139.8},
			{Name: "大阪湾", Lat: 34.6, Lon: 135.4},
		},

		PollenWords: []string{"花粉", "花粉症", "花粉対策", "花粉飛散", "花粉情報", "マスクで花粉", "くしゃみ", "鼻水", "目のかゆみ", "花粉予報", "花粉量", "スギ花粉", "ヒノキ花粉"},

		HeavyRainTriggerWords: []string{"豪雨", "大雨", "暴風雨"},
		HeavyRainWeatherReq:   []string{"注意", "警戒", "危険", "荒れ", "激しい", "強い", "本格的"},
		HeavyRainAdviceReq:    []string{"傘", "雨具", "安全", "注意", "室内", "控え", "警戒", "備え", "準備"},
		StormTriggerWords:     []string{"嵐", "台風", "storm", "typhoon"},
		StormWeatherReq:       []string{"嵐", "暴風", "警戒", "危険", "荒天", "大荒れ"},
		StormAdviceReq:        []string{"危険", "外出控え", "安全確保", "警戒", "室内", "備え", "準備"},

		SunnyWords: []string{"青空", "晴れ", "快晴", "日差し"},
		RainyWords: []string{"雨", "降水", "にわか雨", "傘"},
		HotWords:   []string{"暑い", "猛暑", "熱中症"},
		ColdWords:  []string{"寒い", "冷える", "凍える"},

		HeatSymptomWords: []string{"熱中症", "脱水", "熱射病", "日射病"},
		ColdSymptomWords: []string{"風邪", "冷え", "寒気", "凍え"},

		CriticalKeywords: []string{"雷", "熱中症", "傘", "気温差"},

		PositiveWords:    []string{"穏やか", "快適", "お出かけ日和", "晴れ間"},
		NegativeWords:    []string{"危険", "警戒", "注意", "荒天"},
		EncouragingWords: []string{"大丈夫", "安心", "準備すれば"},

		UmbrellaWords: []string{"傘", "雨具"},

		NightForbidden: []string{"日差し", "強い日差し"},
		DayForbidden:   []string{"星空", "月明かり"},

		LightRainWords: []string{"にわか雨", "一時的な雨", "急な雨"},

		SeasonalTerms: map[string][]int{
			"残暑": {9, 10, 11},
			"初雪": {10, 11, 12, 1, 2, 3, 4, 5},
		},
	}
}
