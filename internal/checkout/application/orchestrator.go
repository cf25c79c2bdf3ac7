package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	orderdom "github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	pricingapp "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/application"
	"github.com/google/uuid"
)

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

// Orchestrator converts a cart snapshot into an order as one all-or-nothing
// operation across four independently locked components. Each stage is
// compensatable: a failure rolls back everything a prior stage did before the
// error surfaces.
type Orchestrator struct {
	log          *slog.Logger
	catalog      Catalog
	reservations Reservations
	pricer       Pricer
	orders       Orders
	ttl          time.Duration
}

func NewOrchestrator(log *slog.Logger, catalog Catalog, reservations Reservations, pricer Pricer, orders Orders) *Orchestrator {
	return &Orchestrator{
		log:          log,
		catalog:      catalog,
		reservations: reservations,
		pricer:       pricer,
		orders:       orders,
		ttl:          2 * time.Minute,
	}
}

func (oc *Orchestrator) Checkout(ctx context.Context, userID string, cart []CartLine, couponCode string, shipTo orderdom.Address) (orderdom.Order, error) {
	if len(cart) == 0 {
		return orderdom.Order{}, fmt.Errorf("empty cart")
	}
	cart, err := mergeCartLines(cart)
	if err != nil {
		return orderdom.Order{}, err
	}
	orderID := uuid.NewString()

	// Snapshot unit prices. The catalog is authoritative at this instant;
	// the order keeps these numbers forever.
	priceLines := make([]pricingapp.Line, 0, len(cart))
	items := make([]orderdom.LineItem, 0, len(cart))
	for _, l := range cart {
		p, err := oc.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			return orderdom.Order{}, err
		}
		if !p.Available {
			return orderdom.Order{}, &ProductUnavailableError{ProductID: l.ProductID}
		}
		priceLines = append(priceLines, pricingapp.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitCents: p.PriceCents})
		items = append(items, orderdom.LineItem{
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			UnitCents:     p.PriceCents,
			SubtotalCents: int64(l.Quantity) * p.PriceCents,
		})
	}

	// Stage 1: reserve stock for every line.
	reservationIDs := make([]string, 0, len(cart))
	for _, l := range cart {
		resID, err := oc.reservations.Reserve(ctx, l.ProductID, l.Quantity, orderID, oc.ttl)
		if err != nil {
			oc.cancelReservations(ctx, reservationIDs)
			return orderdom.Order{}, err
		}
		reservationIDs = append(reservationIDs, resID)
	}

	// Stage 2: price, then consume the coupon slot.
	quote, err := oc.pricer.Price(ctx, priceLines, couponCode)
	if err != nil {
		oc.cancelReservations(ctx, reservationIDs)
		return orderdom.Order{}, err
	}
	if couponCode != "" {
		if err := oc.pricer.Redeem(ctx, couponCode, orderID); err != nil {
			oc.cancelReservations(ctx, reservationIDs)
			return orderdom.Order{}, err
		}
	}

	// Stage 3: create the order in pending/pending.
	o := orderdom.NewOrder(orderID, userID, items, quote.ItemsCents, quote.DiscountCents, quote.ShippingCents, quote.TaxCents, couponCode, shipTo)
	if err := oc.orders.Create(ctx, o); err != nil {
		if couponCode != "" {
			if uerr := oc.pricer.Unredeem(ctx, couponCode, orderID); uerr != nil {
				oc.log.Error("coupon rollback failed", "order_id", orderID, "coupon", couponCode, "err", uerr)
			}
		}
		oc.cancelReservations(ctx, reservationIDs)
		return orderdom.Order{}, err
	}

	// Stage 4: commit reservations into durable deductions.
	for i, resID := range reservationIDs {
		if err := oc.reservations.Commit(ctx, resID); err != nil {
			oc.log.Error("checkout commit failed", "order_id", orderID, "reservation_id", resID, "err", err)
			oc.cancelReservations(ctx, reservationIDs[i:])
			// Cancel restores committed deductions and the coupon slot; it
			// knows from the ledger which lines actually committed.
			if cerr := oc.orders.Cancel(ctx, orderID, "checkout commit failed"); cerr != nil {
				oc.log.Error("checkout rollback failed", "order_id", orderID, "err", cerr)
			}
			return orderdom.Order{}, err
		}
	}

	oc.log.Info("checkout complete", "order_id", orderID, "user", userID, "total_cents", o.TotalCents)
	return o, nil
}

// mergeCartLines collapses repeated products into one line per product,
// summing quantities and keeping first-seen order. One product must map to
// one reservation, one deduction and one order line.
func mergeCartLines(cart []CartLine) ([]CartLine, error) {
	merged := make([]CartLine, 0, len(cart))
	index := make(map[string]int, len(cart))
	for _, l := range cart {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", l.Quantity, l.ProductID)
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

func (oc *Orchestrator) cancelReservations(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := oc.reservations.Cancel(ctx, id); err != nil {
			oc.log.Error("reservation rollback failed", "reservation_id", id, "err", err)
		}
	}
}
