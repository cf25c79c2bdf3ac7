package domain

import (
	"errors"
	"fmt"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            string
	Code          string
	Type          DiscountType
	Value         int64 // percent (0-100) or fixed amount in cents
	MaxDiscount   int64 // cap for percentage coupons, 0 = uncapped
	MinOrderCents int64
	ValidFrom     time.Time
	ValidUntil    time.Time
	Active        bool
	UsageLimit    int
	UsedCount     int
}

// Discount computes the coupon's discount for an items total, assuming the
// coupon already validated against it.
func (c Coupon) Discount(itemsCents int64) int64 {
	switch c.Type {
	case DiscountPercentage:
		d := itemsCents * c.Value / 100
		if c.MaxDiscount > 0 && d > c.MaxDiscount {
			d = c.MaxDiscount
		}
		return d
	case DiscountFixed:
		if c.Value > itemsCents {
			return itemsCents
		}
		return c.Value
	}
	return 0
}

// CheckUsable validates everything except the usage ceiling.
func (c Coupon) CheckUsable(itemsCents int64, now time.Time) error {
	if !c.Active {
		return &CouponInvalidError{Code: c.Code, Reason: "coupon is inactive"}
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return &CouponInvalidError{Code: c.Code, Reason: "outside validity window"}
	}
	if itemsCents < c.MinOrderCents {
		return &CouponInvalidError{
			Code:   c.Code,
			Reason: fmt.Sprintf("order total %d below minimum %d", itemsCents, c.MinOrderCents),
		}
	}
	return nil
}

// Quote is the priced breakdown of a cart before it becomes an order.
type Quote struct {
	ItemsCents    int64
	DiscountCents int64
	ShippingCents int64
	TaxCents      int64
	GrandCents    int64
}

var ErrCouponExhausted = errors.New("pricing: coupon usage limit reached")

type CouponInvalidError struct {
	Code   string
	Reason string
}

func (e *CouponInvalidError) Error() string {
	return fmt.Sprintf("coupon %q invalid: %s", e.Code, e.Reason)
}
