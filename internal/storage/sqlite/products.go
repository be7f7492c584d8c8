package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/pkg/log"
)

const productColumns = `id, name, description, price, category, brand, image_url, tags, stock, rating, created_at`

// Catalog is the product table. It implements core.CatalogRepository.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, fmt.Errorf("%w: %d", core.ErrProductNotFound, id)
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

// GetProducts returns the products with the given ids in the order of ids.
// Unknown ids are skipped.
func (c *Catalog) GetProducts(ctx context.Context, ids []int64) ([]core.Product, error) {
	if len(ids) == 0 {
		return []core.Product{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]core.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.Product, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []core.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ReplaceAll swaps the whole catalog in one transaction, so readers see
// either the old or the new set.
func (c *Catalog) ReplaceAll(ctx context.Context, products []core.Product) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return 0, fmt.Errorf("failed to clear products: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range products {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal tags of product %d: %w", p.ID, err)
		}

		created := p.CreatedAt
		if created.IsZero() {
			created = now
		}

		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Description, p.Price, p.Category, p.Brand, p.ImageURL,
			string(tagsJSON), p.Stock, p.Rating, created,
		); err != nil {
			return 0, fmt.Errorf("failed to insert product %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit catalog: %w", err)
	}

	log.FromCtx(ctx).Info().Int("count", len(products)).Msg("catalog replaced")
	return len(products), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (core.Product, error) {
	var p core.Product
	var tags string
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Brand,
		&p.ImageURL, &tags, &p.Stock, &p.Rating, &p.CreatedAt); err != nil {
		return core.Product{}, err
	}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return core.Product{}, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}
