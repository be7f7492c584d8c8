package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	model string
	err   error
}

func (f *fakeProvider) GetModel() string { return f.model }

func (f *fakeProvider) SetModel(_ context.Context, model string) error {
	if f.err != nil {
		return f.err
	}
	f.model = model
	return nil
}

func TestGlobalState_ChangeModel(t *testing.T) {
	p := &fakeProvider{model: "gpt-4o-mini"}
	s := NewGlobalState(p)

	require.NoError(t, s.ChangeModel(context.Background(), "  gpt-4o "))
	assert.Equal(t, "gpt-4o", p.model)

	assert.Error(t, s.ChangeModel(context.Background(), "   "))
	assert.Equal(t, "gpt-4o", p.model)

	p.err = errors.New("unknown model")
	assert.ErrorContains(t, s.ChangeModel(context.Background(), "x"), "unknown model")
}
