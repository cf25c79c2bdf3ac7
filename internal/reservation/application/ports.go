package application

import (
	"context"

	ledgerdom "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
)

type Ledger interface {
	CurrentStock(ctx context.Context, productID string) (int, error)
	Append(ctx context.Context, e ledgerdom.Entry) (string, error)
}
