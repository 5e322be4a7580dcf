package llm

import (
	"fmt"
	"strings"
)

// Provider selects which bridge backend NewClient constructs.
const (
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compatible"
)

// NewClient builds the LLM bridge client for the configured provider.
// An empty provider defaults to ollama, matching the bridge's native
// /api/chat shape described in the external interfaces.
func NewClient(provider, model, baseURL string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOllama:
		return NewOllamaClient(model, baseURL)
	case ProviderOpenAICompat, "openai":
		return NewOpenAICompatClient(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
