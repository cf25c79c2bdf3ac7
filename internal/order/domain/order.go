package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentConfirmed FulfillmentStatus = "confirmed"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var fulfillmentNext = map[FulfillmentStatus]map[FulfillmentStatus]bool{
	FulfillmentPending:   {FulfillmentConfirmed: true, FulfillmentCancelled: true},
	FulfillmentConfirmed: {FulfillmentShipped: true, FulfillmentCancelled: true},
	FulfillmentShipped:   {FulfillmentDelivered: true},
	FulfillmentDelivered: {},
	FulfillmentCancelled: {},
}

var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:  {PaymentPaid: true, PaymentFailed: true},
	PaymentFailed:   {PaymentPaid: true},
	PaymentPaid:     {PaymentRefunded: true},
	PaymentRefunded: {},
}

func CanTransitionFulfillment(from, to FulfillmentStatus) bool {
	return fulfillmentNext[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return paymentNext[from][to]
}

type LineItem struct {
	ProductID     string
	Quantity      int
	UnitCents     int64 // snapshot at purchase time, never re-read from catalog
	SubtotalCents int64
}

// Address is validated upstream by the address book; the order stores it as
// an opaque attached record.
type Address struct {
	Name    string
	Line1   string
	Line2   string
	City    string
	Region  string
	Zip     string
	Country string
}

type Order struct {
	ID            string
	Number        string
	UserID        string
	Items         []LineItem
	ItemsCents    int64
	DiscountCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
	CouponCode    string
	Fulfillment   FulfillmentStatus
	Payment       PaymentStatus
	ShipTo        Address
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ConfirmedAt   *time.Time
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
}

// NewOrder freezes the priced cart into an order. Totals and unit prices are
// immutable from here on; later catalog changes never touch them. The caller
// supplies the id because it doubles as the cause reference for reservations
// and coupon redemption taken before the order row exists.
func NewOrder(id, userID string, items []LineItem, itemsCents, discountCents, shippingCents, taxCents int64, couponCode string, shipTo Address) Order {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return Order{
		ID:            id,
		Number:        "ORD-" + strings.ToUpper(id[:8]),
		UserID:        userID,
		Items:         items,
		ItemsCents:    itemsCents,
		DiscountCents: discountCents,
		ShippingCents: shippingCents,
		TaxCents:      taxCents,
		TotalCents:    itemsCents - discountCents + shippingCents + taxCents,
		CouponCode:    couponCode,
		Fulfillment:   FulfillmentPending,
		Payment:       PaymentPending,
		ShipTo:        shipTo,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TransitionFulfillment applies a fulfillment transition in place or fails
// with IllegalTransitionError, leaving the order untouched. Advancing past
// Confirmed requires payment to be settled.
func (o *Order) TransitionFulfillment(to FulfillmentStatus, now time.Time) error {
	if !CanTransitionFulfillment(o.Fulfillment, to) {
		return &IllegalTransitionError{OrderID: o.ID, From: string(o.Fulfillment), To: string(to)}
	}
	if (to == FulfillmentShipped || to == FulfillmentDelivered) && o.Payment != PaymentPaid {
		return &IllegalTransitionError{
			OrderID: o.ID,
			From:    string(o.Fulfillment),
			To:      string(to),
			Reason:  "payment not settled",
		}
	}
	o.Fulfillment = to
	o.UpdatedAt = now
	switch to {
	case FulfillmentConfirmed:
		o.ConfirmedAt = &now
	case FulfillmentShipped:
		o.ShippedAt = &now
	case FulfillmentDelivered:
		o.DeliveredAt = &now
	case FulfillmentCancelled:
		o.CancelledAt = &now
	}
	return nil
}

func (o *Order) TransitionPayment(to PaymentStatus, now time.Time) error {
	if !CanTransitionPayment(o.Payment, to) {
		return &IllegalTransitionError{OrderID: o.ID, From: string(o.Payment), To: string(to)}
	}
	o.Payment = to
	o.UpdatedAt = now
	return nil
}

func (o *Order) Contains(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

var (
	ErrNotFound = errors.New("order: not found")

	// ErrConcurrentModification means the order's version moved between read
	// and write. Callers may retry with fresh state.
	ErrConcurrentModification = errors.New("order: concurrent modification")
)

type IllegalTransitionError struct {
	OrderID string
	From    string
	To      string
	Reason  string
}

func (e *IllegalTransitionError) Error() string {
	msg := fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
