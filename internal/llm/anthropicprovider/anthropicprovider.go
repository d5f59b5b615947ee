// Package anthropicprovider implements llm.Provider over the Anthropic
// Messages API, grounded on the go module usage in joestump-claude-ops
// (github.com/anthropics/anthropic-sdk-go).
package anthropicprovider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Provider wraps an Anthropic client configured with a model name.
type Provider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New constructs a Provider. apiKey and model come from config (C16).
func New(apiKey, model string) *Provider {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: client, model: m, maxTokens: 256}
}

// Generate issues a single Messages.New call and returns the concatenated
// text blocks of the response.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropicprovider: generate: %w", err)
	}
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}
