package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sandevgo/shopbot/internal/service/retrieval"
)

type reindexer interface {
	ReseedAndReindex(ctx context.Context) (retrieval.ReindexReport, error)
}

type ReindexCommand struct {
	indexer   reindexer
	formatter *ResponseFormatter
}

func NewReindexCommand(indexer reindexer) *ReindexCommand {
	return &ReindexCommand{
		indexer:   indexer,
		formatter: NewResponseFormatter(),
	}
}

func (c *ReindexCommand) Name() string {
	return "reindex"
}

func (c *ReindexCommand) Description() string {
	return "Reload the seed catalog and rebuild the search index"
}

func (c *ReindexCommand) Execute(ctx context.Context, _ string, _ []string) (string, error) {
	report, err := c.indexer.ReseedAndReindex(ctx)
	if err != nil {
		return "", fmt.Errorf("reindex: %w", err)
	}

	return c.formatter.Combine(
		c.formatter.Success("Catalog reindexed"),
		c.formatter.Label("Products seeded", strconv.Itoa(report.Seeded)),
		c.formatter.Label("Products indexed", strconv.Itoa(report.Indexed)),
	), nil
}
