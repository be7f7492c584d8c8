package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandevgo/shopbot/internal/config"
	"github.com/sandevgo/shopbot/internal/core"
)

func TestNewDescriber(t *testing.T) {
	d := NewDescriber(context.Background(), &config.AppConfig{})
	_, err := d.DescribeImage(context.Background(), "data:image/png;base64,AA==", "describe")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, err, core.ErrRemoteCall)

	d = NewDescriber(context.Background(), &config.AppConfig{OpenRouterAPIKey: "k", VisionModel: "m"})
	assert.IsType(t, &OpenAI{}, d)
}
