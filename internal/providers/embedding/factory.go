package embedding

import (
	"context"
	"fmt"

	"github.com/sandevgo/shopbot/internal/config"
	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

func NewEmbedder(ctx context.Context, cfg *config.AppConfig) (core.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = "hash"
		if cfg.OpenAIAPIKey != "" {
			provider = "openai"
		}
	}

	log.FromCtx(ctx).Info().
		Str("provider", provider).
		Str("model", cfg.EmbeddingModel).
		Msg("starting embedding provider")

	switch provider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel), nil
	case "hash":
		return NewHash(cfg.EmbeddingDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}
