package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	checkoutapp "github.com/dmehra2102/Retail-Checkout-System/internal/checkout/application"
	checkoutmem "github.com/dmehra2102/Retail-Checkout-System/internal/checkout/infrastructure/memory"
	ledgerapp "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/application"
	ledgermem "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/infrastructure/memory"
	orderapp "github.com/dmehra2102/Retail-Checkout-System/internal/order/application"
	orderhttp "github.com/dmehra2102/Retail-Checkout-System/internal/order/infrastructure/http"
	ordermem "github.com/dmehra2102/Retail-Checkout-System/internal/order/infrastructure/memory"
	pricingapp "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/application"
	pricingmem "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/infrastructure/memory"
	reservationapp "github.com/dmehra2102/Retail-Checkout-System/internal/reservation/application"
	reviewapp "github.com/dmehra2102/Retail-Checkout-System/internal/review/application"
	reviewmem "github.com/dmehra2102/Retail-Checkout-System/internal/review/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (http.Handler, *ledgerapp.Service, *checkoutmem.Catalog) {
	t.Helper()
	log := slog.Default()

	catalog := checkoutmem.NewCatalog()
	ledger := ledgerapp.NewService(log, ledgermem.NewStore())
	reservations := reservationapp.NewManager(log, ledger)
	ledger.SetReservedView(reservations)
	pricer := pricingapp.NewService(log, pricingmem.NewStore())
	orders := orderapp.NewService(log, ordermem.NewRepository(), ledger, pricer)
	orchestrator := checkoutapp.NewOrchestrator(log, catalog, reservations, pricer, orders)
	reviews := reviewapp.NewService(log, reviewmem.NewStore(), orders)

	h := orderhttp.NewHandler(log, orchestrator, orders, reviews, ledger, nil)
	return h.Routes(), ledger, catalog
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutLifecycleOverHTTP(t *testing.T) {
	handler, ledger, catalog := newServer(t)
	catalog.Put(checkoutapp.Product{ID: "sku-1", PriceCents: 1500, Available: true})
	_, err := ledger.Receive(context.Background(), "sku-1", 10, "po:seed", "test")
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/checkout", map[string]any{
		"user_id": "user-1",
		"lines":   []map[string]any{{"product_id": "sku-1", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		OrderID    string `json:"order_id"`
		Number     string `json:"number"`
		TotalCents int64  `json:"total_cents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.OrderID)
	assert.Contains(t, created.Number, "ORD-")

	rec = doJSON(t, handler, http.MethodPost, "/orders/"+created.OrderID+"/payment", map[string]string{
		"event_id": "evt-1", "outcome": "paid",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/orders/"+created.OrderID+"/ship", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/orders/"+created.OrderID+"/deliver", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/reviews", map[string]any{
		"product_id": "sku-1", "user_id": "user-1", "order_id": created.OrderID, "rating": 5, "text": "arrived fast",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var review struct {
		Verified bool `json:"verified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.True(t, review.Verified)

	rec = doJSON(t, handler, http.MethodGet, "/products/sku-1/stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stock":8}`, rec.Body.String())
}

func TestReceiveStockOverHTTP(t *testing.T) {
	handler, _, _ := newServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/products/sku-1/receive", map[string]any{
		"quantity": 5, "cause_ref": "po:77", "actor": "warehouse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Replaying the same receiving reference does not double stock.
	rec = doJSON(t, handler, http.MethodPost, "/products/sku-1/receive", map[string]any{
		"quantity": 5, "cause_ref": "po:77", "actor": "warehouse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"duplicate"}`, rec.Body.String())

	rec = doJSON(t, handler, http.MethodGet, "/products/sku-1/stock", nil)
	assert.JSONEq(t, `{"stock":5}`, rec.Body.String())

	// Negative inbound quantity violates ledger integrity.
	rec = doJSON(t, handler, http.MethodPost, "/products/sku-1/receive", map[string]any{
		"quantity": -2, "cause_ref": "po:78",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	handler, _, catalog := newServer(t)
	catalog.Put(checkoutapp.Product{ID: "sku-1", PriceCents: 1500, Available: true})

	t.Run("insufficient stock is a conflict", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/checkout", map[string]any{
			"user_id": "user-1",
			"lines":   []map[string]any{{"product_id": "sku-1", "quantity": 1}},
		})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/orders/ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("shipping an unpaid order is a conflict", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/orders/ghost/ship", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad review is unprocessable", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/reviews", map[string]any{
			"product_id": "sku-1", "user_id": "user-1", "rating": 9,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty checkout body is a bad request", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/checkout", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
