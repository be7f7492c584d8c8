package core

import "context"

type CatalogRepository interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProducts(ctx context.Context, ids []int64) ([]Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ReplaceAll(ctx context.Context, products []Product) (int, error)
}

// TurnArchive receives raw turns right before they are folded into a summary.
type TurnArchive interface {
	ArchiveTurns(ctx context.Context, conversationID string, turns []Turn) error
}
