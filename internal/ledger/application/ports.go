package application

import (
	"context"

	"github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
)

type Store interface {
	// Insert appends the entry unless its idempotency key was seen before.
	// Returns false when the entry already existed.
	Insert(ctx context.Context, e domain.Entry) (bool, error)
	Exists(ctx context.Context, causeRef string, kind domain.Kind, productID string) (bool, error)
	Sum(ctx context.Context, productID string) (int, error)
	ByProduct(ctx context.Context, productID string) ([]domain.Entry, error)
}

// ReservedView reports quantity currently held by active reservations.
// Implemented by the reservation manager.
type ReservedView interface {
	ActiveReserved(productID string) int
}
