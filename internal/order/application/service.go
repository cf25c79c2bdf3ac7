package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ledgerdom "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	"github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	"github.com/dmehra2102/Retail-Checkout-System/pkg/tracing"
)

type PaymentOutcome string

const (
	OutcomePaid   PaymentOutcome = "paid"
	OutcomeFailed PaymentOutcome = "failed"
)

// Service owns the order lifecycle. Every transition goes through the closed
// tables in the domain package and an optimistic version check in the
// repository; there is no ad-hoc status write anywhere else.
type Service struct {
	log     *slog.Logger
	repo    Repository
	ledger  Ledger
	coupons Coupons
}

func NewService(log *slog.Logger, repo Repository, ledger Ledger, coupons Coupons) *Service {
	return &Service{log: log, repo: repo, ledger: ledger, coupons: coupons}
}

func (s *Service) Create(ctx context.Context, o domain.Order) error {
	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:    o.ID,
		Number:     o.Number,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		Items:      o.Items,
	})
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, o, domain.EventOrderCreated, payload, tracing.Traceparent(ctx)); err != nil {
		return err
	}
	s.log.Info("order created", "order_id", o.ID, "number", o.Number, "user", o.UserID, "total_cents", o.TotalCents)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// OnPaymentResult is the single entry point for the payment gateway. A
// successful payment on a pending order also confirms fulfillment.
func (s *Service) OnPaymentResult(ctx context.Context, orderID string, outcome PaymentOutcome) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	prev := o.Version
	now := time.Now().UTC()

	switch outcome {
	case OutcomePaid:
		if err := o.TransitionPayment(domain.PaymentPaid, now); err != nil {
			return err
		}
		if o.Fulfillment == domain.FulfillmentPending {
			if err := o.TransitionFulfillment(domain.FulfillmentConfirmed, now); err != nil {
				return err
			}
		}
	case OutcomeFailed:
		if err := o.TransitionPayment(domain.PaymentFailed, now); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown payment outcome %q", outcome)
	}

	if err := s.update(ctx, o, prev, domain.EventPaymentUpdated, ""); err != nil {
		return err
	}
	s.log.Info("payment result applied", "order_id", orderID, "outcome", outcome, "fulfillment", o.Fulfillment)
	return nil
}

func (s *Service) Confirm(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, domain.FulfillmentConfirmed, domain.EventOrderConfirmed)
}

func (s *Service) Ship(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, domain.FulfillmentShipped, domain.EventOrderShipped)
}

func (s *Service) Deliver(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, domain.FulfillmentDelivered, domain.EventOrderDelivered)
}

func (s *Service) advance(ctx context.Context, orderID string, to domain.FulfillmentStatus, eventType string) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	prev := o.Version
	if err := o.TransitionFulfillment(to, time.Now().UTC()); err != nil {
		return err
	}
	if err := s.update(ctx, o, prev, eventType, ""); err != nil {
		return err
	}
	s.log.Info("order advanced", "order_id", orderID, "fulfillment", to)
	return nil
}

// Cancel moves the order to Cancelled and restores what checkout consumed:
// a return-kind ledger entry per line and the coupon slot, both idempotent by
// cause reference. Cancelling an already cancelled order re-runs only the
// no-op compensation, so replaying the same cancellation is safe.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if o.Fulfillment != domain.FulfillmentCancelled {
		prev := o.Version
		now := time.Now().UTC()
		if err := o.TransitionFulfillment(domain.FulfillmentCancelled, now); err != nil {
			return err
		}
		if o.Payment == domain.PaymentPaid {
			if err := o.TransitionPayment(domain.PaymentRefunded, now); err != nil {
				return err
			}
		}
		if err := s.update(ctx, o, prev, domain.EventOrderCancelled, reason); err != nil {
			return err
		}
	}

	if err := s.compensate(ctx, o); err != nil {
		return err
	}
	s.log.Info("order cancelled", "order_id", orderID, "reason", reason)
	return nil
}

// compensate restores stock and the coupon slot for a cancelled order. Only
// lines whose checkout deduction actually reached the ledger get a return
// entry; a checkout aborted mid-commit never inflates stock. Every step is
// idempotent, so the whole thing can run again after a partial failure.
func (s *Service) compensate(ctx context.Context, o domain.Order) error {
	for _, it := range o.Items {
		deducted, err := s.ledger.Recorded(ctx, "checkout:"+o.ID, ledgerdom.KindOutbound, it.ProductID)
		if err != nil {
			return err
		}
		if !deducted {
			continue
		}
		_, err = s.ledger.Append(ctx, ledgerdom.Entry{
			ProductID: it.ProductID,
			Delta:     it.Quantity,
			Kind:      ledgerdom.KindReturn,
			CauseRef:  "cancel:" + o.ID,
			Actor:     "order-service",
		})
		if err != nil {
			return err
		}
	}
	if o.CouponCode != "" {
		if err := s.coupons.Unredeem(ctx, o.CouponCode, o.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) update(ctx context.Context, o domain.Order, expectedVersion int64, eventType, reason string) error {
	o.Version = expectedVersion + 1
	payload, err := json.Marshal(domain.OrderStatusChanged{
		OrderID:     o.ID,
		Fulfillment: string(o.Fulfillment),
		Payment:     string(o.Payment),
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	err = s.repo.Update(ctx, o, expectedVersion, eventType, payload, tracing.Traceparent(ctx))
	if errors.Is(err, domain.ErrConcurrentModification) {
		s.log.Warn("order version conflict", "order_id", o.ID, "expected_version", expectedVersion)
	}
	return err
}
