package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
	"github.com/sandevgo/shopbot/pkg/retry"
)

type ReindexReport struct {
	Seeded  int `json:"products_seeded"`
	Indexed int `json:"products_indexed"`
}

// Indexer keeps the vector index in step with the catalog.
type Indexer struct {
	catalog  core.CatalogRepository
	embedder core.Embedder
	index    *Index
	seeds    *SeedLoader
	seedPath string
	retrier  *retry.Retrier

	mu sync.Mutex
}

func NewIndexer(catalog core.CatalogRepository, embedder core.Embedder, index *Index, seedPath string) *Indexer {
	return &Indexer{
		catalog:  catalog,
		embedder: embedder,
		index:    index,
		seeds:    NewSeedLoader(),
		seedPath: seedPath,
		retrier:  retry.NewDefaultRetrier(),
	}
}

// ProductText is the text a product is embedded from.
func ProductText(p core.Product) string {
	parts := []string{p.Name, p.Description, p.Brand, p.Category}
	parts = append(parts, p.Tags...)

	var b strings.Builder
	for _, s := range parts {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return b.String()
}

// Rebuild embeds every catalog product and swaps the result in atomically.
// On failure the previous index stays live.
func (x *Indexer) Rebuild(ctx context.Context) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.rebuild(ctx)
}

func (x *Indexer) rebuild(ctx context.Context) (int, error) {
	products, err := x.catalog.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = ProductText(p)
	}

	var vecs [][]float32
	if len(texts) > 0 {
		err = x.retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			vecs, err = x.embedder.EmbedBatch(ctx, texts)
			if errors.Is(err, context.Canceled) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("embed catalog: %w", err)
		}
	}

	entries := make([]Entry, len(products))
	for i, p := range products {
		entries[i] = Entry{ProductID: p.ID, Vector: vecs[i]}
	}

	if err := x.index.Rebuild(entries); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	log.FromCtx(ctx).Info().Int("products", len(entries)).Msg("vector index rebuilt")
	return len(entries), nil
}

// ReseedAndReindex replaces the catalog with the seed file and rebuilds the index.
func (x *Indexer) ReseedAndReindex(ctx context.Context) (ReindexReport, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	products, err := x.seeds.Load(ctx, x.seedPath)
	if err != nil {
		return ReindexReport{}, err
	}

	seeded, err := x.catalog.ReplaceAll(ctx, products)
	if err != nil {
		return ReindexReport{}, fmt.Errorf("replace catalog: %w", err)
	}

	indexed, err := x.rebuild(ctx)
	if err != nil {
		return ReindexReport{Seeded: seeded}, err
	}

	return ReindexReport{Seeded: seeded, Indexed: indexed}, nil
}

// Start builds the index once at startup, seeding an empty catalog first when
// a seed file is available. Failures leave the index empty and are logged.
func (x *Indexer) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	products, err := x.catalog.ListProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read catalog at startup")
		return nil
	}

	if len(products) == 0 && x.seedExists() {
		report, err := x.ReseedAndReindex(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("initial seed failed")
			return nil
		}
		logger.Info().Int("seeded", report.Seeded).Msg("catalog seeded")
		return nil
	}

	if _, err := x.Rebuild(ctx); err != nil {
		logger.Error().Err(err).Msg("initial index build failed")
	}
	return nil
}

func (x *Indexer) Shutdown(ctx context.Context) error {
	return nil
}

func (x *Indexer) seedExists() bool {
	if x.seedPath == "" {
		return false
	}
	if strings.HasPrefix(x.seedPath, "http://") || strings.HasPrefix(x.seedPath, "https://") {
		return true
	}
	_, err := os.Stat(x.seedPath)
	return err == nil
}
