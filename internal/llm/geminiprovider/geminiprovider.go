// Package geminiprovider implements llm.Provider over Google's Gemini API,
// grounded on the go module usage in HotariTobu-Yuruppu
// (google.golang.org/genai).
package geminiprovider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Provider wraps a genai client configured with a model name.
type Provider struct {
	client *genai.Client
	model  string
}

// New constructs a Provider. apiKey and model come from config (C16).
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("geminiprovider: new client: %w", err)
	}
	return &Provider{client: client, model: model}, nil
}

// Generate issues a single GenerateContent call and returns the response text.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("geminiprovider: generate: %w", err)
	}
	return resp.Text(), nil
}
