package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-alert-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-alert-service/internal/commentrepo"
	"github.com/kjstillabower/weather-alert-service/internal/commentvalidation"
	"github.com/kjstillabower/weather-alert-service/internal/config"
	"github.com/kjstillabower/weather-alert-service/internal/forecastcache"
	"github.com/kjstillabower/weather-alert-service/internal/httpapi"
	"github.com/kjstillabower/weather-alert-service/internal/lifecycle"
	"github.com/kjstillabower/weather-alert-service/internal/llm"
	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
	"github.com/kjstillabower/weather-alert-service/internal/orchestrator"
	"github.com/kjstillabower/weather-alert-service/internal/weatherclient"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
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
		logger.Fatal("forecast cache", zap.Error(err))
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
		logger.Fatal("weather client", zap.Error(err))
	}

	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		Component:        "weather_api",
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Info("circuit breaker transition", zap.String("component", "weather_api"), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	weatherClient.SetCircuitBreaker(cb)

	var lexicon commentvalidation.Lexicon
	if cfg.LexiconPath != "" {
		lexicon, err = commentvalidation.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			logger.Warn("lexicon load failed, using default", zap.Error(err), zap.String("path", cfg.LexiconPath))
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

	healthConfig := &httpapi.HealthConfig{
		OverloadWindow:         cfg.OverloadWindow,
		OverloadThresholdPct:   cfg.OverloadThresholdPct,
		RateLimitRPS:           cfg.RateLimitRPS,
		DegradedWindow:         cfg.DegradedWindow,
		DegradedErrorPct:       cfg.DegradedErrorPct,
		IdleWindow:             cfg.IdleWindow,
		IdleThresholdReqPerMin: cfg.IdleThresholdReqPerMin,
		MinimumLifespan:        cfg.MinimumLifespan,
		StartTime:              time.Now(),
	}
	handler := httpapi.NewHandler(pipeline, healthConfig, logger, 1, 100)

	observability.RegisterRateLimitGauges(cfg.OverloadWindow)
	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httpapi.NewRouter(handler, logger, cfg.RequestTimeout, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlightCount := httpapi.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlightCount))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer waitCancel()
	if err := httpapi.WaitForInFlight(waitCtx, 250*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httpapi.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
