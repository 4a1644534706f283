// Package genai connects the course advisor to hosted language models
// (Gemini, Groq and Cerebras). Every caller-facing type here degrades to a
// deterministic fallback, so a conversation turn never fails because an
// upstream model is slow, rate limited or misconfigured.
//
// Requests walk a chain of models: each model is retried with backoff,
// then the next model of the same provider is tried, then the next
// provider in LLM_PROVIDERS order.
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini uses google.golang.org/genai.
	ProviderGemini Provider = "gemini"
	// ProviderGroq uses the OpenAI-compatible Groq endpoint.
	ProviderGroq Provider = "groq"
	// ProviderCerebras uses the OpenAI-compatible Cerebras endpoint.
	ProviderCerebras Provider = "cerebras"
)

// ProviderEndpoint holds base URLs for OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible returns true if the provider uses the OpenAI API shape.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// Operation labels used for metrics and logs.
const (
	OpParse     = "parse"
	OpClassify  = "classify"
	OpNoResults = "no_results"
	OpDescribe  = "describe"
	OpAnswer    = "answer"
)

// Request is a single-turn generation request.
type Request struct {
	// Operation labels metrics; one of the Op* constants.
	Operation string
	Prompt    string
	// JSON asks the model for a JSON object when the provider supports it.
	JSON            bool
	Temperature     float32
	MaxOutputTokens int32
}

// Generator produces text for a prompt using one model.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Provider() Provider
	Model() string
	Close() error
}

// RetryConfig defines retry behavior for a single model.
// Uses Full Jitter exponential backoff.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds the key and model chain for one provider.
type ProviderConfig struct {
	APIKey string
	// Models are tried in order; the first is primary.
	Models []string
}

// LLMConfig holds configuration for all providers.
type LLMConfig struct {
	// Providers is the fallback order. Providers without a key are skipped.
	Providers []Provider

	Gemini   ProviderConfig
	Groq     ProviderConfig
	Cerebras ProviderConfig

	Retry RetryConfig

	// Timeout bounds one call to the whole chain.
	Timeout time.Duration
}

// Default model chains.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels     = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}
)

// Retry and timeout defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
	DefaultTimeout           = 15 * time.Second
)

// HasAnyProvider returns true if at least one provider has an API key.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != "" || c.Cerebras.APIKey != ""
}

// ProviderConfigFor returns the configuration for p, or nil for unknown providers.
func (c *LLMConfig) ProviderConfigFor(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	case ProviderCerebras:
		return &c.Cerebras
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers with API keys, in c.Providers order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if pc := c.ProviderConfigFor(p); pc != nil && pc.APIKey != "" {
			result = append(result, p)
		}
	}
	return result
}

// DefaultLLMConfig returns the default provider order and model chains.
// API keys must be provided separately.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers: DefaultProviders,
		Gemini:    ProviderConfig{Models: DefaultGeminiModels},
		Groq:      ProviderConfig{Models: DefaultGroqModels},
		Cerebras:  ProviderConfig{Models: DefaultCerebrasModels},
		Retry:     DefaultRetryConfig(),
		Timeout:   DefaultTimeout,
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
