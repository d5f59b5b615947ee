// Command gencomment is the CLI front-end for the comment generation
// pipeline (spec §6): it takes one or more locations, wires the same
// collaborators as cmd/service, and prints one JSON record per location
// to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-alert-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-alert-service/internal/commentrepo"
	"github.com/kjstillabower/weather-alert-service/internal/commentvalidation"
	"github.com/kjstillabower/weather-alert-service/internal/config"
	"github.com/kjstillabower/weather-alert-service/internal/forecastcache"
	"github.com/kjstillabower/weather-alert-service/internal/llm"
	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
	"github.com/kjstillabower/weather-alert-service/internal/orchestrator"
	"github.com/kjstillabower/weather-alert-service/internal/weatherclient"
)

// locationArg is one parsed --location value: name, or name,lat,lon.
type locationArg struct {
	name string
	lat  float64
	lon  float64
}

func parseLocationArg(raw string) (locationArg, error) {
	parts := strings.Split(raw, ",")
	switch len(parts) {
	case 1:
		return locationArg{name: strings.TrimSpace(parts[0])}, nil
	case 3:
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return locationArg{}, fmt.Errorf("invalid latitude in %q: %w", raw, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return locationArg{}, fmt.Errorf("invalid longitude in %q: %w", raw, err)
		}
		return locationArg{name: strings.TrimSpace(parts[0]), lat: lat, lon: lon}, nil
	default:
		return locationArg{}, fmt.Errorf("--location must be name or name,lat,lon, got %q", raw)
	}
}

// record is one line of JSON output per location.
type record struct {
	Location     string         `json:"location"`
	FinalComment string         `json:"final_comment"`
	Metadata     map[string]any `json:"metadata"`
	Errors       []string       `json:"errors"`
	Success      bool           `json:"success"`
}

func main() {
	var (
		locations       []string
		datetimeStr     string
		llmProviderStr  string
		excludePrevious bool
	)

	root := &cobra.Command{
		Use:   "gencomment",
		Short: "Generate Japanese weather commentary for one or more locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(locations, datetimeStr, llmProviderStr, excludePrevious)
		},
	}
	root.Flags().StringArrayVar(&locations, "location", nil, "location as name or name,lat,lon (repeatable)")
	root.Flags().StringVar(&datetimeStr, "datetime", "", "target datetime, RFC3339 (defaults to now)")
	root.Flags().StringVar(&llmProviderStr, "llm-provider", "openai", "LLM provider: openai, gemini, or anthropic")
	root.Flags().BoolVar(&excludePrevious, "exclude-previous", false, "avoid repeating the previous comment pair")
	_ = root.MarkFlagRequired("location")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(rawLocations []string, datetimeStr, llmProviderStr string, excludePrevious bool) error {
	if len(rawLocations) == 0 {
		return fmt.Errorf("at least one --location is required")
	}
	provider := model.LLMProvider(llmProviderStr)
	switch provider {
	case model.ProviderOpenAI, model.ProviderGemini, model.ProviderAnthropic:
	default:
		return fmt.Errorf("--llm-provider must be openai, gemini, or anthropic, got %q", llmProviderStr)
	}

	target := time.Now()
	if datetimeStr != "" {
		parsed, err := time.Parse(time.RFC3339, datetimeStr)
		if err != nil {
			return fmt.Errorf("--datetime must be RFC3339: %w", err)
		}
		target = parsed
	}

	logger, err := observability.NewLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cache, err := forecastcache.New(forecastcache.Config{
		Backend:               cfg.CacheBackend,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      cfg.MemcachedTimeout,
		MemcachedMaxIdleConns: cfg.MemcachedMaxIdleConns,
		L1MaxSize:             500,
		L1TTL:                 cfg.ForecastCacheL1TTL,
		L2MaxDistanceKM:       10.0,
		L2MaxNeighbors:        5,
		L3Dir:                 cfg.ForecastCacheDir,
		L3ToleranceHours:      3.0,
		L3RetentionDays:       int(cfg.ForecastCacheL3Retention.Hours() / 24),
	})
	if err != nil {
		return fmt.Errorf("forecast cache: %w", err)
	}

	weatherClient, err := weatherclient.NewHTTPClient(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
		cache,
	)
	if err != nil {
		return fmt.Errorf("weather client: %w", err)
	}
	weatherClient.SetCircuitBreaker(circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		Component:        "weather_api",
	}))

	var lexicon commentvalidation.Lexicon
	if cfg.LexiconPath != "" {
		lexicon, err = commentvalidation.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			logger.Warn("lexicon load failed, using default", zap.Error(err))
			lexicon = commentvalidation.DefaultLexicon()
		}
	} else {
		lexicon = commentvalidation.DefaultLexicon()
	}
	validator := commentvalidation.New(lexicon)
	comments := commentrepo.New(cfg.CommentCorpusDir, cfg.CommentCacheTTL)
	registry := llm.NewRegistry(map[model.LLMProvider]llm.ProviderCredentials{
		model.ProviderOpenAI:    {APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel},
		model.ProviderGemini:    {APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel},
		model.ProviderAnthropic: {APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel},
	}, cfg.LLMCallTimeout, cfg.LLMMaxRetries, cfg.LLMBaseDelay, logger)

	pipeline := orchestrator.New(weatherClient, comments, validator, registry)

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	for _, raw := range rawLocations {
		loc, err := parseLocationArg(raw)
		if err != nil {
			return err
		}
		state, err := pipeline.Generate(ctx, loc.name, loc.lat, loc.lon, target, provider, excludePrevious, "", "")
		if err != nil {
			return fmt.Errorf("generate for %q: %w", loc.name, err)
		}
		errs := make([]string, 0, len(state.Errors))
		for _, e := range state.Errors {
			errs = append(errs, string(e.Kind)+": "+e.Message)
		}
		if err := enc.Encode(record{
			Location:     loc.name,
			FinalComment: state.FinalComment,
			Metadata:     state.Metadata,
			Errors:       errs,
			Success:      state.Success,
		}); err != nil {
			return fmt.Errorf("encode result for %q: %w", loc.name, err)
		}
	}
	return nil
}
