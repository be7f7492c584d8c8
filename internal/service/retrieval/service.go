package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

type Status string

const (
	StatusMatched Status = "matched"
	StatusNoMatch Status = "no_match"
)

const (
	msgNoMatch     = "No sufficiently similar products were found in the catalog."
	msgEmptyQuery  = "The query was empty, so nothing could be searched."
	msgOverBudget  = "Similar products exist, but none fit within the budget of %.2f."
	defaultMaxTopK = 10
)

// Recommendation is the outcome of one retrieval. NoMatch is a normal
// outcome, not an error, and always carries a Message for synthesis.
type Recommendation struct {
	Status   Status                 `json:"status"`
	Query    string                 `json:"query"`
	TopScore float64                `json:"top_score"`
	Results  []core.RetrievalResult `json:"results"`
	Message  string                 `json:"message,omitempty"`
}

func (r Recommendation) Matched() bool {
	return r.Status == StatusMatched
}

type options struct {
	budget float64
	reason string
}

type Option func(*options)

// WithBudget drops matches priced above budget. Zero or negative means no limit.
func WithBudget(budget float64) Option {
	return func(o *options) { o.budget = budget }
}

// WithReason sets the explanation attached to every result. The single %s verb receives the query.
func WithReason(format string) Option {
	return func(o *options) { o.reason = format }
}

type Service struct {
	embedder core.Embedder
	index    *Index
	catalog  core.CatalogRepository
	maxTopK  int
}

// NewService expects embedder to return normalized vectors (embedding.Gateway does).
func NewService(embedder core.Embedder, index *Index, catalog core.CatalogRepository, maxTopK int) *Service {
	if maxTopK <= 0 {
		maxTopK = defaultMaxTopK
	}
	return &Service{
		embedder: embedder,
		index:    index,
		catalog:  catalog,
		maxTopK:  maxTopK,
	}
}

func (s *Service) Recommend(ctx context.Context, query string, topK int, policy Policy, opts ...Option) (Recommendation, error) {
	o := options{reason: "Recommended based on your preferences: '%s'"}
	for _, opt := range opts {
		opt(&o)
	}

	query = strings.TrimSpace(query)
	rec := Recommendation{Status: StatusNoMatch, Query: query, Results: []core.RetrievalResult{}}
	if query == "" {
		rec.Message = msgEmptyQuery
		return rec, nil
	}

	topK = max(1, min(topK, s.maxTopK))
	logger := log.FromCtx(ctx).With().Str("query", query).Int("top_k", topK).Logger()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Recommendation{}, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}

	hits, err := s.index.Query(vec, topK)
	if err != nil {
		return Recommendation{}, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}
	if len(hits) == 0 {
		logger.Debug().Msg("index is empty")
		rec.Message = msgNoMatch
		return rec, nil
	}

	rec.TopScore = hits[0].Score
	if !policy.Accept(rec.TopScore) {
		logger.Debug().
			Float64("top_score", rec.TopScore).
			Float64("threshold", policy.Threshold()).
			Msg("top hit below threshold")
		rec.Message = msgNoMatch
		return rec, nil
	}

	results, err := s.hydrate(ctx, hits)
	if err != nil {
		return Recommendation{}, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}

	reason := fmt.Sprintf(o.reason, query)
	for _, r := range results {
		if o.budget > 0 && r.Product.Price > o.budget {
			continue
		}
		r.Reason = reason
		rec.Results = append(rec.Results, r)
	}

	if len(rec.Results) == 0 {
		rec.Message = fmt.Sprintf(msgOverBudget, o.budget)
		if len(results) == 0 {
			rec.Message = msgNoMatch
		}
		return rec, nil
	}

	rec.Status = StatusMatched
	logger.Debug().Int("results", len(rec.Results)).Float64("top_score", rec.TopScore).Msg("retrieval matched")
	return rec, nil
}

// hydrate loads catalog rows for hits, keeping hit order. Hits whose product
// vanished since the last reindex are skipped.
func (s *Service) hydrate(ctx context.Context, hits []Hit) ([]core.RetrievalResult, error) {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ProductID
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate products: %w", err)
	}

	byID := make(map[int64]core.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	results := make([]core.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		p, ok := byID[h.ProductID]
		if !ok {
			log.FromCtx(ctx).Warn().Int64("product_id", h.ProductID).Msg("indexed product missing from catalog")
			continue
		}
		results = append(results, core.RetrievalResult{Product: p, Score: h.Score})
	}
	return results, nil
}
