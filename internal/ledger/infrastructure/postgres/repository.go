package postgres

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS stock_ledger (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		delta INT NOT NULL,
		kind TEXT NOT NULL,
		cause_ref TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (cause_ref, kind, product_id)
	)`)
	return err
}

func (r *Repository) Insert(ctx context.Context, e domain.Entry) (bool, error) {
	ct, err := r.pool.Exec(ctx, `INSERT INTO stock_ledger (id, product_id, delta, kind, cause_ref, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (cause_ref, kind, product_id) DO NOTHING`,
		e.ID, e.ProductID, e.Delta, e.Kind, e.CauseRef, e.Actor, e.CreatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repository) Exists(ctx context.Context, causeRef string, kind domain.Kind, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM stock_ledger WHERE cause_ref=$1 AND kind=$2 AND product_id=$3)`,
		causeRef, kind, productID).Scan(&exists)
	return exists, err
}

func (r *Repository) Sum(ctx context.Context, productID string) (int, error) {
	var sum int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(delta),0) FROM stock_ledger WHERE product_id=$1`, productID).Scan(&sum)
	return sum, err
}

func (r *Repository) ByProduct(ctx context.Context, productID string) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, delta, kind, cause_ref, actor, created_at
		FROM stock_ledger WHERE product_id=$1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Delta, &e.Kind, &e.CauseRef, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
