package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmehra2102/Retail-Checkout-System/internal/pricing/application"
	"github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
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
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount_type TEXT NOT NULL,
		discount_value BIGINT NOT NULL,
		max_discount_cents BIGINT NOT NULL DEFAULT 0,
		min_order_cents BIGINT NOT NULL DEFAULT 0,
		valid_from TIMESTAMPTZ NOT NULL,
		valid_until TIMESTAMPTZ NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		usage_limit INT NOT NULL,
		used_count INT NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS coupon_redemptions (
		code TEXT NOT NULL,
		cause_ref TEXT NOT NULL,
		redeemed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (code, cause_ref)
	)`)
	return err
}

// Put upserts a coupon definition. Used for seeding and back-office edits;
// used_count is left untouched on update.
func (r *Repository) Put(ctx context.Context, c domain.Coupon) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO coupons
			(id, code, discount_type, discount_value, max_discount_cents, min_order_cents,
			 valid_from, valid_until, active, usage_limit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (code) DO UPDATE SET
			discount_type=EXCLUDED.discount_type,
			discount_value=EXCLUDED.discount_value,
			max_discount_cents=EXCLUDED.max_discount_cents,
			min_order_cents=EXCLUDED.min_order_cents,
			valid_from=EXCLUDED.valid_from,
			valid_until=EXCLUDED.valid_until,
			active=EXCLUDED.active,
			usage_limit=EXCLUDED.usage_limit`,
		c.ID, c.Code, c.Type, c.Value, c.MaxDiscount, c.MinOrderCents,
		c.ValidFrom, c.ValidUntil, c.Active, c.UsageLimit)
	return err
}

func (r *Repository) GetByCode(ctx context.Context, code string) (domain.Coupon, error) {
	var c domain.Coupon
	err := r.pool.QueryRow(ctx, `SELECT id, code, discount_type, discount_value, max_discount_cents,
			min_order_cents, valid_from, valid_until, active, usage_limit, used_count
		FROM coupons WHERE code=$1`, code).
		Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MaxDiscount, &c.MinOrderCents,
			&c.ValidFrom, &c.ValidUntil, &c.Active, &c.UsageLimit, &c.UsedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Coupon{}, application.ErrCouponNotFound
	}
	if err != nil {
		return domain.Coupon{}, err
	}
	return c, nil
}

// Redeem records the cause ref and bumps used_count in one transaction. The
// conditional UPDATE is the atomic check-and-increment; two concurrent orders
// cannot both slip past the limit.
func (r *Repository) Redeem(ctx context.Context, code, causeRef string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `INSERT INTO coupon_redemptions (code, cause_ref) VALUES ($1,$2)
		ON CONFLICT (code, cause_ref) DO NOTHING`, code, causeRef)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		// Already redeemed for this cause; replay is a no-op.
		return tx.Commit(ctx)
	}

	ct, err = tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1
		WHERE code=$1 AND used_count < usage_limit`, code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM coupons WHERE code=$1)`, code).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return application.ErrCouponNotFound
		}
		return domain.ErrCouponExhausted
	}
	return tx.Commit(ctx)
}

func (r *Repository) Unredeem(ctx context.Context, code, causeRef string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `DELETE FROM coupon_redemptions WHERE code=$1 AND cause_ref=$2`, code, causeRef)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}
	if _, err := tx.Exec(ctx, `UPDATE coupons SET used_count = used_count - 1 WHERE code=$1 AND used_count > 0`, code); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
