package provider

const openRouterDefaultBase = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates an OpenAI-compatible provider targeting
// OpenRouter. Model names keep their vendor prefix ("google/gemini-2.5-flash").
func NewOpenRouterProvider(apiKey, apiBase, defaultModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = openRouterDefaultBase
	}
	if defaultModel == "" {
		defaultModel = "google/gemini-2.5-flash"
	}
	p := NewOpenAIProvider(apiKey, apiBase, defaultModel)
	p.name = "openrouter"
	p.headers["X-Title"] = "tribunal"
	return p
}
