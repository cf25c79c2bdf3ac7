package application

import (
	"context"

	ledgerdom "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	"github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
)

// Repository persists orders together with their lifecycle event in one
// transaction (transactional outbox). Update rejects stale versions with
// domain.ErrConcurrentModification.
type Repository interface {
	Create(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	Update(ctx context.Context, o domain.Order, expectedVersion int64, eventType string, payload []byte, traceparent string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type Ledger interface {
	Append(ctx context.Context, e ledgerdom.Entry) (string, error)
	Recorded(ctx context.Context, causeRef string, kind ledgerdom.Kind, productID string) (bool, error)
}

type Coupons interface {
	Unredeem(ctx context.Context, code, causeRef string) error
}
