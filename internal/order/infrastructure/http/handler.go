package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	checkoutapp "github.com/dmehra2102/Retail-Checkout-System/internal/checkout/application"
	ledgerapp "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/application"
	ledgerdom "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	"github.com/dmehra2102/Retail-Checkout-System/internal/order/application"
	"github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	pricingdom "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
	resdom "github.com/dmehra2102/Retail-Checkout-System/internal/reservation/domain"
	reviewapp "github.com/dmehra2102/Retail-Checkout-System/internal/review/application"
	reviewdom "github.com/dmehra2102/Retail-Checkout-System/internal/review/domain"
	"github.com/dmehra2102/Retail-Checkout-System/pkg/idempotency"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log      *slog.Logger
	checkout *checkoutapp.Orchestrator
	orders   *application.Service
	reviews  *reviewapp.Service
	ledger   *ledgerapp.Service
	idem     *idempotency.Store
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, checkout *checkoutapp.Orchestrator, orders *application.Service, reviews *reviewapp.Service, ledger *ledgerapp.Service, idem *idempotency.Store) *Handler {
	return &Handler{
		log:      log,
		checkout: checkout,
		orders:   orders,
		reviews:  reviews,
		ledger:   ledger,
		idem:     idem,
		tracer:   otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/checkout", h.doCheckout)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/payment", h.paymentCallback)
	r.Post("/orders/{id}/ship", h.ship)
	r.Post("/orders/{id}/deliver", h.deliver)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/reviews", h.postReview)
	r.Get("/products/{id}/stock", h.getStock)
	r.Post("/products/{id}/receive", h.receiveStock)
	return r
}

type checkoutReq struct {
	UserID     string                 `json:"user_id"`
	Lines      []checkoutapp.CartLine `json:"lines"`
	CouponCode string                 `json:"coupon_code,omitempty"`
	ShipTo     domain.Address         `json:"ship_to"`
}

func (h *Handler) doCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.UserID == "" || len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and lines are required"})
		return
	}

	o, err := h.checkout.Checkout(ctx, req.UserID, req.Lines, req.CouponCode, req.ShipTo)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":    o.ID,
		"number":      o.Number,
		"total_cents": o.TotalCents,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type paymentReq struct {
	EventID string `json:"event_id"`
	Outcome string `json:"outcome"`
}

// paymentCallback is the only entry point for the payment gateway. Gateways
// redeliver, so callbacks are deduplicated by event id.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentCallback")
	defer span.End()

	orderID := chi.URLParam(r, "id")
	var req paymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	if req.EventID != "" && h.idem != nil {
		seen, err := h.idem.Seen(ctx, h.idem.PaymentKey(orderID, req.EventID))
		if err != nil {
			h.log.Error("idempotency check failed", "err", err)
		} else if seen {
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	if err := h.orders.OnPaymentResult(ctx, orderID, application.PaymentOutcome(req.Outcome)); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (h *Handler) ship(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Ship)
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Deliver)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), "customer request"); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error) {
	if err := fn(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type reviewReq struct {
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	OrderID   string `json:"order_id,omitempty"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
}

func (h *Handler) postReview(w http.ResponseWriter, r *http.Request) {
	var req reviewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	rev, err := h.reviews.Submit(r.Context(), reviewdom.Review{
		ProductID: req.ProductID,
		UserID:    req.UserID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Text:      req.Text,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"review_id": rev.ID,
		"verified":  rev.VerifiedPurchase,
	})
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.ledger.CurrentStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stock": stock})
}

type receiveReq struct {
	Quantity int    `json:"quantity"`
	CauseRef string `json:"cause_ref"`
	Actor    string `json:"actor"`
}

// receiveStock records inbound stock from the warehouse, idempotent per
// receiving reference.
func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	var req receiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.CauseRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cause_ref is required"})
		return
	}
	id, err := h.ledger.Receive(r.Context(), chi.URLParam(r, "id"), req.Quantity, req.CauseRef, req.Actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"entry_id": id})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *resdom.InsufficientStockError
	var couponInvalid *pricingdom.CouponInvalidError
	var illegal *domain.IllegalTransitionError
	var unavailable *checkoutapp.ProductUnavailableError
	var validation *reviewdom.ValidationError
	var invalidDelta *ledgerdom.InvalidDeltaError

	switch {
	case errors.As(err, &insufficient),
		errors.As(err, &illegal),
		errors.Is(err, pricingdom.ErrCouponExhausted),
		errors.Is(err, domain.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &couponInvalid),
		errors.As(err, &unavailable),
		errors.As(err, &validation),
		errors.As(err, &invalidDelta):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, resdom.ErrBusy):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.Error("internal error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
