package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	"github.com/jackc/pgx/v5"
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
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		items_cents BIGINT NOT NULL,
		discount_cents BIGINT NOT NULL,
		shipping_cents BIGINT NOT NULL,
		tax_cents BIGINT NOT NULL,
		total_cents BIGINT NOT NULL,
		coupon_code TEXT NOT NULL DEFAULT '',
		fulfillment TEXT NOT NULL,
		payment TEXT NOT NULL,
		ship_name TEXT NOT NULL DEFAULT '',
		ship_line1 TEXT NOT NULL DEFAULT '',
		ship_line2 TEXT NOT NULL DEFAULT '',
		ship_city TEXT NOT NULL DEFAULT '',
		ship_region TEXT NOT NULL DEFAULT '',
		ship_zip TEXT NOT NULL DEFAULT '',
		ship_country TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		confirmed_at TIMESTAMPTZ,
		shipped_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ
	)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id),
		product_id TEXT NOT NULL,
		quantity INT NOT NULL,
		unit_cents BIGINT NOT NULL,
		subtotal_cents BIGINT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS outbox (
		id BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload BYTEA NOT NULL,
		traceparent TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		relay_id TEXT,
		lease_until TIMESTAMPTZ,
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (r *Repository) Create(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, number, user_id, items_cents, discount_cents, shipping_cents,
			tax_cents, total_cents, coupon_code, fulfillment, payment,
			ship_name, ship_line1, ship_line2, ship_city, ship_region, ship_zip, ship_country,
			version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		o.ID, o.Number, o.UserID, o.ItemsCents, o.DiscountCents, o.ShippingCents,
		o.TaxCents, o.TotalCents, o.CouponCode, o.Fulfillment, o.Payment,
		o.ShipTo.Name, o.ShipTo.Line1, o.ShipTo.Line2, o.ShipTo.City, o.ShipTo.Region, o.ShipTo.Zip, o.ShipTo.Country,
		o.Version, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity, unit_cents, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ProductID, it.Quantity, it.UnitCents, it.SubtotalCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	if err := insertOutbox(ctx, tx, o.ID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Update(ctx context.Context, o domain.Order, expectedVersion int64, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET fulfillment=$2, payment=$3, version=$4, updated_at=$5,
			confirmed_at=$6, shipped_at=$7, delivered_at=$8, cancelled_at=$9
		WHERE id=$1 AND version=$10`,
		o.ID, o.Fulfillment, o.Payment, o.Version, o.UpdatedAt,
		o.ConfirmedAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt, expectedVersion)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConcurrentModification
	}

	if err := insertOutbox(ctx, tx, o.ID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload []byte, traceparent string) error {
	_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ('order',$1,$2,$3,$4,'pending')`, orderID, eventType, payload, traceparent)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	var confirmed, shipped, delivered, cancelled *time.Time
	err := r.pool.QueryRow(ctx, `SELECT id, number, user_id, items_cents, discount_cents, shipping_cents,
			tax_cents, total_cents, coupon_code, fulfillment, payment,
			ship_name, ship_line1, ship_line2, ship_city, ship_region, ship_zip, ship_country,
			version, created_at, updated_at, confirmed_at, shipped_at, delivered_at, cancelled_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Number, &o.UserID, &o.ItemsCents, &o.DiscountCents, &o.ShippingCents,
			&o.TaxCents, &o.TotalCents, &o.CouponCode, &o.Fulfillment, &o.Payment,
			&o.ShipTo.Name, &o.ShipTo.Line1, &o.ShipTo.Line2, &o.ShipTo.City, &o.ShipTo.Region, &o.ShipTo.Zip, &o.ShipTo.Country,
			&o.Version, &o.CreatedAt, &o.UpdatedAt, &confirmed, &shipped, &delivered, &cancelled)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	o.ConfirmedAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt = confirmed, shipped, delivered, cancelled

	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, unit_cents, subtotal_cents
		FROM order_items WHERE order_id=$1`, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitCents, &it.SubtotalCents); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM orders WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
