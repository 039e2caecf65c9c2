package ai

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderLocal  = "local"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Embedder converts texts to vectors. The i-th vector belongs to the i-th text.
type Embedder interface {
	Embed(ctx context.Context, texts ...string) ([][]float32, error)
	Model() string
}

// NormalizeProvider lowercases the provider name and applies the default.
func NormalizeProvider(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case "":
		return ProviderLocal, nil
	case ProviderLocal, ProviderGemini, ProviderOpenAI, ProviderOllama:
		return provider, nil
	default:
		return "", fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
