// Package openaiprovider implements llm.Provider over the OpenAI chat
// completions API, grounded on the go module usage in lu-jim-tour-assist
// and 8adimka-Go_AI_Assistant (github.com/openai/openai-go/v2).
package openaiprovider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Provider wraps an OpenAI client configured with a model name.
type Provider struct {
	client openai.Client
	model  string
}

// New constructs a Provider. apiKey and model come from config (C16).
func New(apiKey, model string) *Provider {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: client, model: model}
}

// Generate issues a single chat-completion call and returns the first
// choice's message content.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openaiprovider: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
