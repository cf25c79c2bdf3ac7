package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/Retail-Checkout-System/internal/checkout/application"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog reads the products table the catalog service maintains. The core
// never writes it.
type Catalog struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewCatalog(log *slog.Logger, pool *pgxpool.Pool) *Catalog {
	return &Catalog{log: log, pool: pool}
}

func (c *Catalog) EnsureSchema(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL,
		cost_cents BIGINT NOT NULL DEFAULT 0,
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`)
	return err
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (application.Product, error) {
	var p application.Product
	err := c.pool.QueryRow(ctx, `SELECT id, price_cents, available FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.PriceCents, &p.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return application.Product{}, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return application.Product{}, err
	}
	return p, nil
}
