package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-alert-service/internal/llm/anthropicprovider"
	"github.com/kjstillabower/weather-alert-service/internal/llm/geminiprovider"
	"github.com/kjstillabower/weather-alert-service/internal/llm/openaiprovider"
	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// ProviderCredentials bundles the per-provider API key and model name read
// from config (C16).
type ProviderCredentials struct {
	APIKey string
	Model  string
}

// Registry builds a RetryingProvider for each of the three supported
// backends on demand, selected by model.LLMProvider.
type Registry struct {
	credentials map[model.LLMProvider]ProviderCredentials
	callTimeout time.Duration
	maxRetries  int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewRegistry constructs a Registry from per-provider credentials and the
// shared retry contract (spec §6).
func NewRegistry(creds map[model.LLMProvider]ProviderCredentials, callTimeout time.Duration, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *Registry {
	return &Registry{credentials: creds, callTimeout: callTimeout, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// Get constructs (or would construct) the provider for the given enum value.
func (r *Registry) Get(ctx context.Context, provider model.LLMProvider) (Provider, error) {
	creds, ok := r.credentials[provider]
	if !ok {
		return nil, fmt.Errorf("llm: no credentials configured for provider %q", provider)
	}

	var inner Provider
	switch provider {
	case model.ProviderOpenAI:
		inner = openaiprovider.New(creds.APIKey, creds.Model)
	case model.ProviderGemini:
		p, err := geminiprovider.New(ctx, creds.APIKey, creds.Model)
		if err != nil {
			return nil, err
		}
		inner = p
	case model.ProviderAnthropic:
		inner = anthropicprovider.New(creds.APIKey, creds.Model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}

	return NewRetryingProvider(inner, provider, r.callTimeout, r.maxRetries, r.baseDelay, r.logger), nil
}
