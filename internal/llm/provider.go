// Package llm implements the two-tier model-assisted classifier and the
// closed set of inference provider variants it dispatches to.
package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Provider is one configured inference backend: text in, text out. The set
// of variants is closed — adding one means extending NewProvider, which
// keeps the dispatch exhaustive.
type Provider interface {
	// Name returns the provider tag ("ollama", "openai", ...).
	Name() string
	// Model returns the configured model identifier.
	Model() string
	// Complete sends a prompt and returns the raw text response.
	Complete(ctx context.Context, prompt string) (string, error)
	// TestConnection verifies the backend is reachable and authorized.
	TestConnection(ctx context.Context) error
	// EstimateCost returns the estimated USD cost of a call with the given
	// prompt and response sizes in characters. Zero for local inference.
	EstimateCost(promptChars, responseChars int) float64
}

// Settings binds an agent to a provider variant.
type Settings struct {
	Provider string // tag: "ollama", "openai", "anthropic", "gemini", "deepseek"
	Model    string
	APIKey   string // hosted variants only
	Endpoint string // required for ollama; overrides the default base URL elsewhere
}

// NewProvider constructs the provider variant selected by the tag.
func NewProvider(s Settings, client *http.Client) (Provider, error) {
	switch s.Provider {
	case "ollama":
		return NewOllamaProvider(s.Endpoint, s.Model, client), nil
	case "openai":
		return NewOpenAIProvider(s.Endpoint, s.APIKey, s.Model, client), nil
	case "anthropic":
		return NewAnthropicProvider(s.Endpoint, s.APIKey, s.Model, client), nil
	case "gemini":
		return NewGeminiProvider(s.Endpoint, s.APIKey, s.Model, client), nil
	case "deepseek":
		return NewDeepSeekProvider(s.Endpoint, s.APIKey, s.Model, client), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", s.Provider)
	}
}
