package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/KafClaw/tribunal/internal/config"
)

// providerAliases maps common aliases to canonical provider IDs.
var providerAliases = map[string]string{
	"google":   "gemini",
	"googleai": "gemini",
	"gpt":      "openai",
	"or":       "openrouter",
}

// NormalizeProviderID resolves aliases and normalizes the provider ID.
func NormalizeProviderID(id string) string {
	lower := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := providerAliases[lower]; ok {
		return canonical
	}
	return lower
}

// ParseModelString splits a "provider/model" string into provider ID and model name.
// For OpenRouter, the format is "openrouter/vendor/model" (three segments).
func ParseModelString(s string) (providerID, modelName string) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 {
		return "", s
	}
	providerID = strings.ToLower(parts[0])
	modelName = parts[1]
	return
}

// ProviderFor picks the provider ID for a model string. Bare names starting
// with "gemini" go to Gemini; other bare names go to OpenAI.
func ProviderFor(modelStr string) (providerID, model string) {
	providerID, model = ParseModelString(modelStr)
	if providerID == "" {
		if strings.HasPrefix(strings.ToLower(model), "gemini") {
			return "gemini", model
		}
		return "openai", model
	}
	return NormalizeProviderID(providerID), model
}

// Resolve creates the LLMProvider for model (cfg.Model.Name when empty),
// wrapped with the configured retry policy.
func Resolve(ctx context.Context, cfg *config.Config, model string) (LLMProvider, error) {
	if model == "" {
		model = cfg.Model.Name
	}
	provID, name := ProviderFor(model)
	p, err := buildProvider(ctx, cfg, provID, name)
	if err != nil {
		return nil, err
	}
	return WithRetry(p, cfg.Retry.Policy()), nil
}

func buildProvider(ctx context.Context, cfg *config.Config, provID, model string) (LLMProvider, error) {
	switch provID {
	case "gemini":
		return NewGeminiProvider(ctx, GeminiOptions{
			APIKey:       cfg.Providers.Gemini.APIKey,
			BaseURL:      cfg.Providers.Gemini.APIBase,
			DefaultModel: model,
		})
	case "openai":
		if cfg.Providers.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
		}
		return NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, model), nil
	case "openrouter":
		if cfg.Providers.OpenRouter.APIKey == "" {
			return nil, fmt.Errorf("openrouter: %w", ErrMissingAPIKey)
		}
		return NewOpenRouterProvider(cfg.Providers.OpenRouter.APIKey, cfg.Providers.OpenRouter.APIBase, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provID)
	}
}
