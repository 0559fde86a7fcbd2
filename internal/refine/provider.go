// Package refine asks an LLM to fill in loan fields the extraction
// strategies could not find.
package refine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrNoProvider is returned when no provider is configured or detected.
var ErrNoProvider = errors.New("no LLM provider configured")

// Provider is a chat completion backend.
type Provider interface {
	// Complete sends a system and a user prompt and returns the reply text.
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the provider identifier.
	Name() string
}

// Request is a single-turn completion.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey  string
	BaseURL string // For OpenRouter or custom endpoints
	Model   string
}

// ProviderFactory creates providers.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

var registry = map[string]ProviderFactory{
	"openai": func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg, "openai"), nil
	},
	"openrouter": func(cfg ProviderConfig) (Provider, error) {
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIProvider(cfg, "openrouter"), nil
	},
	"anthropic": func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg), nil
	},
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", name, AvailableProviders())
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s needs an API key", ErrNoProvider, name)
	}
	return factory(cfg)
}

// AvailableProviders returns the registered provider names, sorted.
func AvailableProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// envKeys is the detection order for provider API keys.
var envKeys = []struct{ provider, env string }{
	{"openai", "OPENAI_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
}

// DetectProvider returns the first provider whose API key is set in the
// environment.
func DetectProvider() (provider, apiKey string, err error) {
	for _, k := range envKeys {
		if key := os.Getenv(k.env); key != "" {
			return k.provider, key, nil
		}
	}
	return "", "", ErrNoProvider
}
