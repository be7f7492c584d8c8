package state

import (
	"context"
	"errors"
	"strings"

	"github.com/sandevgo/shopbot/pkg/log"
)

type provider interface {
	GetModel() string
	SetModel(ctx context.Context, model string) error
}

// GlobalState holds the process-wide settings that commands may change while
// conversations are running.
type GlobalState struct {
	provider provider
}

func NewGlobalState(
	provider provider,
) *GlobalState {
	return &GlobalState{
		provider: provider,
	}
}

func (s *GlobalState) ChangeModel(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return errors.New("model name is empty")
	}

	previous := s.provider.GetModel()
	if err := s.provider.SetModel(ctx, model); err != nil {
		return err
	}

	log.FromCtx(ctx).Info().Str("from", previous).Str("to", model).Msg("chat model changed")
	return nil
}
