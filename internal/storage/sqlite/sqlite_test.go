package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/shopbot/internal/core"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "nested", "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var products = []core.Product{
	{ID: 1, Name: "Wireless Headphones", Price: 199, Category: "audio", Brand: "Sonic", Tags: []string{"wireless", "bluetooth"}, Stock: 5, Rating: 4.6},
	{ID: 2, Name: "Running T-Shirt", Price: 25, Category: "apparel"},
	{ID: 3, Name: "Ceramic Teapot", Price: 40, Category: "kitchen", ImageURL: "https://example.com/teapot.jpg"},
}

func TestCatalog_ReplaceAndRead(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t))

	n, err := catalog.ReplaceAll(ctx, products)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := catalog.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Headphones", got.Name)
	assert.Equal(t, []string{"wireless", "bluetooth"}, got.Tags)
	assert.InDelta(t, 4.6, got.Rating, 1e-9)
	assert.False(t, got.CreatedAt.IsZero())

	got, err = catalog.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Tags)

	_, err = catalog.GetProduct(ctx, 99)
	assert.ErrorIs(t, err, core.ErrProductNotFound)

	list, err := catalog.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(1), list[0].ID)
}

func TestCatalog_GetProductsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t))
	_, err := catalog.ReplaceAll(ctx, products)
	require.NoError(t, err)

	got, err := catalog.GetProducts(ctx, []int64{3, 42, 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)

	got, err = catalog.GetProducts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalog_ReplaceAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newTestDB(t))
	_, err := catalog.ReplaceAll(ctx, products)
	require.NoError(t, err)

	// Duplicate primary key fails the second insert; the old catalog survives.
	_, err = catalog.ReplaceAll(ctx, []core.Product{{ID: 7, Name: "a"}, {ID: 7, Name: "b"}})
	require.Error(t, err)

	list, err := catalog.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	n, err := catalog.ReplaceAll(ctx, []core.Product{})
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err = catalog.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(newTestDB(t))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	turns := []core.Turn{
		{Role: core.RoleUser, Content: "find headphones", CreatedAt: now},
		{Role: core.RoleAssistant, Content: "Try the Sonic pair.", CreatedAt: now.Add(time.Second), ToolCalls: []core.ToolRecord{
			{Function: "recommend_products", Arguments: map[string]any{"query": "headphones"}},
		}},
	}

	require.NoError(t, archive.ArchiveTurns(ctx, "c1", turns))
	require.NoError(t, archive.ArchiveTurns(ctx, "c1", nil))
	require.NoError(t, archive.ArchiveTurns(ctx, "c2", turns[:1]))

	got, err := archive.ArchivedTurns(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "find headphones", got[0].Content)
	assert.True(t, got[0].CreatedAt.Equal(now))
	require.Len(t, got[1].ToolCalls, 1)
	assert.Equal(t, "headphones", got[1].ToolCalls[0].Arguments["query"])

	got, err = archive.ArchivedTurns(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
