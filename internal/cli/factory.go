package cli

import (
	"fmt"
	"time"

	"bookwise/config"
	"bookwise/internal/adapter/embedding"
	"bookwise/internal/adapter/generation"
	"bookwise/internal/port"
	"bookwise/internal/retry"
)

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.Dimension)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "compatible":
		return embedding.NewCompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimension)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newGenerator(cfg *config.Config) (port.Generator, error) {
	switch cfg.Generation.Provider {
	case "openai":
		return generation.NewOpenAIGenerator(cfg.Generation.APIKeyEnv, cfg.Generation.Model)
	case "ollama":
		return generation.NewOllamaGenerator(cfg.Generation.Model, cfg.Generation.BaseURL)
	case "compatible":
		return generation.NewCompatibleGenerator(cfg.Generation.APIKeyEnv, cfg.Generation.Model, cfg.Generation.BaseURL)
	case "local":
		return generation.NewLocalGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Generation.Provider)
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.Retry.Attempts > 0 {
		policy.Attempts = cfg.Retry.Attempts
	}
	if cfg.Retry.CooldownMS > 0 {
		policy.Cooldown = time.Duration(cfg.Retry.CooldownMS) * time.Millisecond
	}
	return policy
}
