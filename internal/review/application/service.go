package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	orderdom "github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	"github.com/dmehra2102/Retail-Checkout-System/internal/review/domain"
	"github.com/google/uuid"
)

// Service stores reviews and computes the verified-purchase flag itself; the
// flag is never trusted as caller input. Policy: a review for a product the
// user never received is accepted, just unverified. A review that explicitly
// claims an order which does not back it up is rejected.
type Service struct {
	log    *slog.Logger
	store  Store
	orders OrderReader
}

func NewService(log *slog.Logger, store Store, orders OrderReader) *Service {
	return &Service{log: log, store: store, orders: orders}
}

func (s *Service) Submit(ctx context.Context, r domain.Review) (domain.Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return domain.Review{}, &domain.ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	if r.ProductID == "" || r.UserID == "" {
		return domain.Review{}, &domain.ValidationError{Field: "product_id", Reason: "product and user are required"}
	}

	verified, err := s.verify(ctx, r)
	if err != nil {
		return domain.Review{}, err
	}
	r.VerifiedPurchase = verified

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, r); err != nil {
		return domain.Review{}, err
	}
	s.log.Info("review stored", "review_id", r.ID, "product", r.ProductID, "user", r.UserID, "verified", r.VerifiedPurchase)
	return r, nil
}

func (s *Service) verify(ctx context.Context, r domain.Review) (bool, error) {
	if r.OrderID != "" {
		o, err := s.orders.Get(ctx, r.OrderID)
		if err != nil {
			if errors.Is(err, orderdom.ErrNotFound) {
				return false, &domain.ValidationError{Field: "order_id", Reason: "order does not exist"}
			}
			return false, err
		}
		if !backsPurchase(o, r.UserID, r.ProductID) {
			return false, &domain.ValidationError{Field: "order_id", Reason: "order does not back this purchase"}
		}
		return true, nil
	}

	// No claim: look for any delivered order of this user with the product.
	orders, err := s.orders.ListByUser(ctx, r.UserID)
	if err != nil {
		return false, err
	}
	for _, o := range orders {
		if backsPurchase(o, r.UserID, r.ProductID) {
			return true, nil
		}
	}
	return false, nil
}

func backsPurchase(o orderdom.Order, userID, productID string) bool {
	return o.UserID == userID &&
		o.Fulfillment == orderdom.FulfillmentDelivered &&
		o.Contains(productID)
}
