package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/shopbot/internal/config"
	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

var ErrNotConfigured = errors.New("vision model is not configured")

// NewDescriber picks credentials for the vision model. An explicit
// VISION_BASE_URL wins; otherwise OpenAI, then OpenRouter keys are tried.
func NewDescriber(ctx context.Context, cfg *config.AppConfig) core.VisionDescriber {
	logger := log.FromCtx(ctx)

	var apiKey, baseURL string
	switch {
	case cfg.VisionBaseURL != "":
		apiKey, baseURL = cfg.OpenAIAPIKey, cfg.VisionBaseURL
		if apiKey == "" {
			apiKey = cfg.CustomOpenAIAPIKey
		}
	case cfg.OpenAIAPIKey != "":
		apiKey = cfg.OpenAIAPIKey
	case cfg.OpenRouterAPIKey != "":
		apiKey, baseURL = cfg.OpenRouterAPIKey, openRouterBaseURL
	default:
		logger.Warn().Msg("no vision credentials, image search is disabled")
		return disabled{}
	}

	logger.Info().Str("model", cfg.VisionModel).Msg("starting vision provider")
	return NewOpenAI(apiKey, baseURL, cfg.VisionModel)
}

type disabled struct{}

func (disabled) DescribeImage(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: %w", core.ErrRemoteCall, ErrNotConfigured)
}
