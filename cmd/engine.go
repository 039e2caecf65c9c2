package cmd

import (
	"context"
	"fmt"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/ai/local"
	"github.com/spigell/resume-matcher/internal/ai/openai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/scoring"
	"github.com/spigell/resume-matcher/internal/secrets"

	"go.uber.org/zap"
)

// newEmbedder builds the embedder for the configured provider.
func newEmbedder(ctx context.Context, cfg EngineConfig, log *zap.Logger) (ai.Embedder, error) {
	provider, err := ai.NormalizeProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case ai.ProviderGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  cfg.Gemini.APIKeyFile,
			Value: cfg.Gemini.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set engine.gemini.api-key-file or %s_ENGINE_GEMINI_API_KEY)", err, envPrefix)
		}

		embedLogger := logger.WithEngine(log, provider, cfg.Gemini.Model).
			With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

		embedder, err := gemini.NewEmbedder(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, embedLogger)
		if err != nil {
			return nil, err
		}
		return embedder, nil

	case ai.ProviderOpenAI, ai.ProviderOllama:
		apiKey, err := secrets.Load(secrets.Source{
			Name:     provider + " api key",
			File:     cfg.OpenAI.APIKeyFile,
			Value:    cfg.OpenAI.APIKey,
			Optional: provider == ai.ProviderOllama,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set engine.openai.api-key-file or %s_ENGINE_OPENAI_API_KEY)", err, envPrefix)
		}

		clientCfg := openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		}

		var embedder *openai.Embedder
		if provider == ai.ProviderOllama {
			embedder, err = openai.NewOllamaEmbedder(clientCfg)
		} else {
			embedder, err = openai.NewEmbedder(clientCfg)
		}
		if err != nil {
			return nil, err
		}
		return embedder, nil

	default:
		return local.NewEmbedder(cfg.Dimension), nil
	}
}

// newScorer wires the configured embedder into a scoring pipeline.
func newScorer(ctx context.Context, config *Config, log *zap.Logger) (*scoring.Scorer, error) {
	embedder, err := newEmbedder(ctx, config.Engine, log)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	provider, _ := ai.NormalizeProvider(config.Engine.Provider)
	scorerLogger := logger.WithEngine(log, provider, embedder.Model())

	engine := scoring.NewEmbeddingEngine(embedder)
	return scoring.NewScorer(engine, scorerLogger, config.Log.MaxLength), nil
}
