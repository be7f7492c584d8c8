package retrieval

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sandevgo/shopbot/internal/core"
)

type memCatalog struct {
	mu       sync.Mutex
	products map[int64]core.Product
}

func newMemCatalog(products ...core.Product) *memCatalog {
	c := &memCatalog{products: map[int64]core.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *memCatalog) GetProduct(_ context.Context, id int64) (core.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return core.Product{}, core.ErrProductNotFound
	}
	return p, nil
}

func (c *memCatalog) GetProducts(_ context.Context, ids []int64) ([]core.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.Product
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *memCatalog) ListProducts(_ context.Context) ([]core.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) ReplaceAll(_ context.Context, products []core.Product) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = map[int64]core.Product{}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return len(products), nil
}

// tableEmbedder returns fixed vectors per text.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return v, nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
