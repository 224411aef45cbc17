package ai

import (
	"context"
	"fmt"
)

// AnthropicConfig placeholder for anthropic integration configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicResponder is a stub implementation that can be expanded once the SDK is available.
type AnthropicResponder struct{}

// NewAnthropicResponder constructs a new stub responder.
func NewAnthropicResponder(cfg AnthropicConfig) (*AnthropicResponder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return &AnthropicResponder{}, nil
}

// Respond is not yet implemented for Anthropic models.
func (a *AnthropicResponder) Respond(ctx context.Context, question Question) (string, error) {
	return "", fmt.Errorf("anthropic responder not implemented")
}
