package application

import (
	"context"
	"time"

	orderdom "github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	pricingapp "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/application"
	pricingdom "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
)

// Product is the catalog's answer at checkout time: authoritative for price
// snapshotting at that instant, nothing more.
type Product struct {
	ID         string
	PriceCents int64
	Available  bool
}

// Catalog is the read-only collaborator boundary to the catalog service.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (Product, error)
}

type Reservations interface {
	Reserve(ctx context.Context, productID string, qty int, orderRef string, ttl time.Duration) (string, error)
	Commit(ctx context.Context, reservationID string) error
	Cancel(ctx context.Context, reservationID string) error
}

type Pricer interface {
	Price(ctx context.Context, lines []pricingapp.Line, couponCode string) (pricingdom.Quote, error)
	Redeem(ctx context.Context, code, causeRef string) error
	Unredeem(ctx context.Context, code, causeRef string) error
}

type Orders interface {
	Create(ctx context.Context, o orderdom.Order) error
	Cancel(ctx context.Context, orderID, reason string) error
}
