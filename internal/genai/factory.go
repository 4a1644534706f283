package genai

import (
	"context"

	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
)

// NewChainFromConfig builds a Chain with one generator per configured model,
// in provider order. It returns a nil Chain when no provider has a key;
// callers then use the offline implementations.
func NewChainFromConfig(ctx context.Context, cfg LLMConfig, log *logger.Logger, m *metrics.Metrics) *Chain {
	var generators []Generator

	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.ProviderConfigFor(provider)
		models := pc.Models
		if len(models) == 0 {
			models = defaultModels(provider)
		}

		for _, model := range models {
			var (
				g   Generator
				err error
			)
			if provider == ProviderGemini {
				g, err = newGeminiGenerator(ctx, pc.APIKey, model)
			} else {
				g, err = newOpenAIGenerator(provider, pc.APIKey, model)
			}
			if err != nil {
				log.WithError(err).WarnContext(ctx, "Failed to create LLM client",
					"provider", provider,
					"model", model)
				continue
			}
			generators = append(generators, g)
		}
	}

	if len(generators) == 0 {
		log.InfoContext(ctx, "No LLM provider configured, using offline parsing")
		return nil
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	log.InfoContext(ctx, "LLM chain configured",
		"primary", generators[0].Provider(),
		"model", generators[0].Model(),
		"chain_size", len(generators))
	return NewChain(generators, retry, cfg.Timeout, log, m)
}

func defaultModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModels
	case ProviderGroq:
		return DefaultGroqModels
	case ProviderCerebras:
		return DefaultCerebrasModels
	default:
		return nil
	}
}
