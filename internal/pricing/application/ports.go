package application

import (
	"context"
	"errors"

	"github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
)

type CouponStore interface {
	GetByCode(ctx context.Context, code string) (domain.Coupon, error)
	// Redeem consumes one usage slot for causeRef. Check-and-increment is a
	// single atomic step; the same causeRef redeems at most once. Returns
	// ErrCouponExhausted when the ceiling is reached.
	Redeem(ctx context.Context, code, causeRef string) error
	// Unredeem gives the slot back. Unknown causeRefs are no-ops.
	Unredeem(ctx context.Context, code, causeRef string) error
}

var ErrCouponNotFound = errors.New("pricing: coupon not found")
