package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sandevgo/shopbot/internal/core"
)

// DynamicProvider lets the chat model be switched at runtime without
// disturbing requests already in flight.
type DynamicProvider struct {
	config  core.ProviderConfig
	current atomic.Pointer[providerHolder]
	mu      sync.Mutex
}

type providerHolder struct {
	core.AIProvider
}

func NewDynamicProvider(ctx context.Context, config core.ProviderConfig) (*DynamicProvider, error) {
	d := &DynamicProvider{
		config: config,
	}

	provider, err := NewProvider(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial provider: %w", err)
	}

	d.current.Store(&providerHolder{provider})
	return d, nil
}

func (d *DynamicProvider) Chat(ctx context.Context, history []core.Message, tools []core.Tool, choice core.ToolChoice) (core.Message, error) {
	return d.current.Load().Chat(ctx, history, tools, choice)
}

func (d *DynamicProvider) Models(ctx context.Context) ([]core.Model, error) {
	return d.current.Load().Models(ctx)
}

func (d *DynamicProvider) GetModel() string {
	return d.config.GetModel()
}

func (d *DynamicProvider) SetModel(ctx context.Context, model string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.config.SetModel(model); err != nil {
		return err
	}

	newProvider, err := NewProvider(ctx, d.config)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	d.current.Store(&providerHolder{newProvider})
	return nil
}
