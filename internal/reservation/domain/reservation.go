package domain

import (
	"errors"
	"fmt"
	"time"
)

// Reservation is a short-lived hold on stock taken during checkout. It is
// never persisted; it either becomes an outbound ledger entry on commit or
// vanishes on cancel/expiry.
type Reservation struct {
	ID        string
	ProductID string
	Quantity  int
	OrderRef  string
	ExpiresAt time.Time
}

func (r Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

var (
	// ErrBusy means the per-product lock could not be taken within the
	// bounded wait. Callers may retry.
	ErrBusy = errors.New("reservation: product busy")

	ErrNotFound = errors.New("reservation: not found or expired")
)

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}
