package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

const defaultBatchSize = 64

// Gateway is the only path from text to vectors. Every vector it returns is
// L2-normalized, which is what lets the index rank by plain inner product.
type Gateway struct {
	embedder  core.Embedder
	timeout   time.Duration
	batchSize int
	group     singleflight.Group
}

func NewGateway(embedder core.Embedder, timeout time.Duration) *Gateway {
	return &Gateway{
		embedder:  embedder,
		timeout:   timeout,
		batchSize: defaultBatchSize,
	}
}

// Embed collapses concurrent requests for the same text into one remote call.
// The shared call is detached from any single caller, so one caller giving up
// does not fail the others; each caller still stops waiting on its own ctx.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	ch := g.group.DoChan(text, func() (any, error) {
		callCtx, cancel := g.withTimeout(context.WithoutCancel(ctx))
		defer cancel()

		vec, err := g.embedder.Embed(callCtx, text)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty embedding", core.ErrRemoteCall)
		}
		return Normalize(vec), nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("embed query: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("embed query: %w", res.Err)
	}

	if res.Shared {
		log.FromCtx(ctx).Debug().Msg("embedding shared with concurrent caller")
	}

	// Callers own their slice.
	vec := res.Val.([]float32)
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		vecs, err := g.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *Gateway) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	vecs, err := g.embedder.EmbedBatch(callCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", core.ErrRemoteCall, len(texts), len(vecs))
	}
	for i := range vecs {
		vecs[i] = Normalize(vecs[i])
	}
	return vecs, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
