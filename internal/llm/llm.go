// Package llm defines the provider contract consumed by the pair selector
// (C8) and safety rewriter (C9), plus a retrying decorator shared by all
// three concrete provider implementations.
package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/observability"
)

// Provider is the external LLM collaborator contract from spec §6:
// generate(prompt) -> text. Out of scope for this repo beyond this
// interface and the retry/fallback wrapper around it.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FallbackText is returned after retry exhaustion so the pipeline can
// continue rather than fail the request outright (spec §6, §7 LLMError).
const FallbackText = "本日の天気情報です"

// RetryingProvider wraps a Provider with the timeout/retry contract from
// spec §6: 30s per call, up to 3 retries, 2s backoff. Grounded on the
// teacher's client.go exponential-backoff retry loop, generalized from HTTP
// calls to LLM calls and implemented with cenkalti/backoff/v4 rather than a
// hand-rolled loop, since the pack shows that library for this concern
// (michaeldoye-BreathRoute, lox-wandiweather).
type RetryingProvider struct {
	inner       Provider
	callTimeout time.Duration
	maxRetries  int
	baseDelay   time.Duration
	logger      *zap.Logger
	provider    model.LLMProvider
}

// NewRetryingProvider constructs the decorator.
func NewRetryingProvider(inner Provider, provider model.LLMProvider, callTimeout time.Duration, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *RetryingProvider {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &RetryingProvider{inner: inner, callTimeout: callTimeout, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger, provider: provider}
}

// Generate calls the wrapped provider with a per-call timeout, retrying
// transient failures with exponential backoff, and falling back to
// FallbackText after exhaustion so generation can still proceed.
func (p *RetryingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.baseDelay
	bo.MaxElapsedTime = p.callTimeout * time.Duration(p.maxRetries)
	retryable := backoff.WithMaxRetries(bo, uint64(p.maxRetries))

	var result string
	var lastErr error
	attempt := 0
	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()

		text, err := p.inner.Generate(callCtx, prompt)
		if err != nil {
			lastErr = err
			if p.logger != nil {
				p.logger.Warn("llm generate attempt failed", zap.String("provider", string(p.provider)), zap.Int("attempt", attempt), zap.Error(err))
			}
			return err
		}
		if text == "" {
			lastErr = errEmptyOutput
			return errEmptyOutput // safety-block output retried like any other transient failure
		}
		result = text
		return nil
	}

	if err := backoff.Retry(op, retryable); err != nil {
		if p.logger != nil {
			p.logger.Warn("llm generate exhausted retries, using fallback", zap.String("provider", string(p.provider)), zap.Error(lastErr))
		}
		observability.LLMCallsTotal.WithLabelValues(string(p.provider), "fallback").Inc()
		return FallbackText, nil
	}
	observability.LLMCallsTotal.WithLabelValues(string(p.provider), "success").Inc()
	return result, nil
}

var errEmptyOutput = errEmptyOutputErr{}

type errEmptyOutputErr struct{}

func (errEmptyOutputErr) Error() string { return "llm: empty output" }
