package application

import (
	"context"

	orderdom "github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	"github.com/dmehra2102/Retail-Checkout-System/internal/review/domain"
)

type Store interface {
	Save(ctx context.Context, r domain.Review) error
}

type OrderReader interface {
	Get(ctx context.Context, id string) (orderdom.Order, error)
	ListByUser(ctx context.Context, userID string) ([]orderdom.Order, error)
}
