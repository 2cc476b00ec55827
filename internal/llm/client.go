// Package llm holds the generation-service clients. Every provider
// implements the same two-method Client interface; the pipeline neither
// knows nor cares which provider produced a candidate.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client defines the interface for generation-service providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrNoAPIKey is returned when a client is constructed without credentials.
var ErrNoAPIKey = errors.New("API key not configured")

// Options selects and configures a provider.
type Options struct {
	Provider string // anthropic, groq, gemini
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds a client for the configured provider.
func New(opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	switch opts.Provider {
	case "anthropic", "":
		return NewAnthropicClient(opts), nil
	case "groq":
		return NewGroqClient(opts), nil
	case "gemini":
		return NewGeminiClient(opts)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
}
