package model

import "time"

// LLMProvider enumerates the supported LLM back-ends.
type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderGemini    LLMProvider = "gemini"
	ProviderAnthropic LLMProvider = "anthropic"
)

// ErrorKind is the closed set of pipeline error categories (spec §7).
type ErrorKind string

const (
	ErrKindConfig         ErrorKind = "config_error"
	ErrKindLocation       ErrorKind = "location_error"
	ErrKindAPIKeyMissing  ErrorKind = "api_key_missing"
	ErrKindAPIKeyInvalid  ErrorKind = "api_key_invalid"
	ErrKindRateLimit      ErrorKind = "rate_limit"
	ErrKindNetwork        ErrorKind = "network"
	ErrKindTimeout        ErrorKind = "timeout"
	ErrKindServer         ErrorKind = "server"
	ErrKindEmptyData      ErrorKind = "empty_data"
	ErrKindDataValidation ErrorKind = "data_validation_error"
	ErrKindCache          ErrorKind = "cache_error"
	ErrKindCorpus         ErrorKind = "corpus_error"
	ErrKindSelection      ErrorKind = "selection_error"
	ErrKindLLM            ErrorKind = "llm_error"
)

// StageError is a single non-fatal event recorded into GenerationState.Errors.
type StageError struct {
	Message   string
	Stage     string
	Kind      ErrorKind
	Timestamp time.Time
}

// GenerationState is the mutable record threaded through the orchestrator's
// stages for the duration of one request. It is exclusively owned by the
// orchestrator; stages receive it by pointer and mutate it in place.
//
// This replaces the dynamic dict-as-state object used upstream: every field
// here is named and typed, with no attribute-style dynamic access.
type GenerationState struct {
	// Inputs
	LocationName    string
	Lat             float64
	Lon             float64
	TargetDatetime  time.Time
	LLMProvider     LLMProvider
	ExcludePrevious bool
	PrevWeatherText string
	PrevAdviceText  string

	// Intermediates
	ResolvedLocation string
	WeatherData      Forecast
	PeriodForecasts  []Forecast // the four report-hour forecasts
	TrendDirection   string     // "improving" | "deteriorating" | "stable" | ""
	WeatherComments  []PastComment
	AdviceComments   []PastComment
	SelectedPair     *CommentPair
	GeneratedComment string
	ExcludedPairs    []CommentPair

	// Control
	RetryCount       int
	MaxRetryCount    int
	ValidationResult ValidationResult
	ShouldRetry      bool

	// Outputs
	Success      bool
	FinalComment string
	Metadata     map[string]any

	// Diagnostics
	Errors   []StageError
	Warnings []string
}

// NewGenerationState builds the initial state for one request.
func NewGenerationState(location string, lat, lon float64, target time.Time, provider LLMProvider, excludePrevious bool, maxRetries int) *GenerationState {
	return &GenerationState{
		LocationName:    location,
		Lat:             lat,
		Lon:             lon,
		TargetDatetime:  target,
		LLMProvider:     provider,
		ExcludePrevious: excludePrevious,
		MaxRetryCount:   maxRetries,
		Metadata:        make(map[string]any),
	}
}

// AddError appends a non-fatal diagnostic; it never mutates Success.
func (s *GenerationState) AddError(stage string, kind ErrorKind, message string) {
	s.Errors = append(s.Errors, StageError{Message: message, Stage: stage, Kind: kind, Timestamp: time.Now()})
}

// AddWarning appends a warning string to diagnostics.
func (s *GenerationState) AddWarning(message string) {
	s.Warnings = append(s.Warnings, message)
}

// Fail marks the state terminally failed with a fatal stage error.
func (s *GenerationState) Fail(stage string, kind ErrorKind, message string) {
	s.Success = false
	s.AddError(stage, kind, message)
}
