package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
)

const (
	defaultShippingCents     = 500
	defaultFreeShippingCents = 10_000
	defaultTaxBasisPoints    = 800 // 8%
)

// Line is a priced cart line as seen by the evaluator. Unit prices arrive
// already snapshotted by the caller.
type Line struct {
	ProductID string
	Quantity  int
	UnitCents int64
}

type Service struct {
	log               *slog.Logger
	coupons           CouponStore
	shippingCents     int64
	freeShippingCents int64
	taxBasisPoints    int64
}

func NewService(log *slog.Logger, coupons CouponStore) *Service {
	return &Service{
		log:               log,
		coupons:           coupons,
		shippingCents:     defaultShippingCents,
		freeShippingCents: defaultFreeShippingCents,
		taxBasisPoints:    defaultTaxBasisPoints,
	}
}

// Price computes the order totals. Passing a coupon code validates it fully,
// including the usage ceiling, but consumes nothing; Redeem does that.
func (s *Service) Price(ctx context.Context, lines []Line, couponCode string) (domain.Quote, error) {
	var q domain.Quote
	for _, l := range lines {
		q.ItemsCents += int64(l.Quantity) * l.UnitCents
	}

	if couponCode != "" {
		c, err := s.coupons.GetByCode(ctx, couponCode)
		if err != nil {
			if errors.Is(err, ErrCouponNotFound) {
				return domain.Quote{}, &domain.CouponInvalidError{Code: couponCode, Reason: "unknown code"}
			}
			return domain.Quote{}, err
		}
		if err := c.CheckUsable(q.ItemsCents, time.Now().UTC()); err != nil {
			return domain.Quote{}, err
		}
		if c.UsedCount >= c.UsageLimit {
			return domain.Quote{}, domain.ErrCouponExhausted
		}
		q.DiscountCents = c.Discount(q.ItemsCents)
	}

	if q.ItemsCents < s.freeShippingCents {
		q.ShippingCents = s.shippingCents
	}
	q.TaxCents = (q.ItemsCents - q.DiscountCents) * s.taxBasisPoints / 10_000
	q.GrandCents = q.ItemsCents - q.DiscountCents + q.ShippingCents + q.TaxCents
	return q, nil
}

// Redeem atomically consumes one usage slot for causeRef. Safe to replay;
// the same causeRef never consumes two slots.
func (s *Service) Redeem(ctx context.Context, code, causeRef string) error {
	if err := s.coupons.Redeem(ctx, code, causeRef); err != nil {
		return err
	}
	s.log.Info("coupon redeemed", "code", code, "cause", causeRef)
	return nil
}

// Unredeem is the compensating decrement for an aborted checkout or a
// cancelled order. Replays and unknown causeRefs are no-ops.
func (s *Service) Unredeem(ctx context.Context, code, causeRef string) error {
	if code == "" {
		return nil
	}
	if err := s.coupons.Unredeem(ctx, code, causeRef); err != nil {
		return err
	}
	s.log.Info("coupon redemption rolled back", "code", code, "cause", causeRef)
	return nil
}
