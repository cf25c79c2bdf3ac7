package application_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/Retail-Checkout-System/internal/checkout/application"
	checkoutmem "github.com/dmehra2102/Retail-Checkout-System/internal/checkout/infrastructure/memory"
	ledgerapp "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/application"
	ledgermem "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/infrastructure/memory"
	orderapp "github.com/dmehra2102/Retail-Checkout-System/internal/order/application"
	orderdom "github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
	ordermem "github.com/dmehra2102/Retail-Checkout-System/internal/order/infrastructure/memory"
	pricingapp "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/application"
	pricingdom "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
	pricingmem "github.com/dmehra2102/Retail-Checkout-System/internal/pricing/infrastructure/memory"
	reservationapp "github.com/dmehra2102/Retail-Checkout-System/internal/reservation/application"
	reservationdom "github.com/dmehra2102/Retail-Checkout-System/internal/reservation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	catalog      *checkoutmem.Catalog
	ledger       *ledgerapp.Service
	reservations *reservationapp.Manager
	couponStore  *pricingmem.Store
	orderRepo    *ordermem.Repository
	orders       *orderapp.Service
	checkout     *application.Orchestrator
}

func newWorld(t *testing.T) *world {
	t.Helper()
	log := slog.Default()

	catalog := checkoutmem.NewCatalog()
	ledger := ledgerapp.NewService(log, ledgermem.NewStore())
	reservations := reservationapp.NewManager(log, ledger)
	ledger.SetReservedView(reservations)
	couponStore := pricingmem.NewStore()
	pricer := pricingapp.NewService(log, couponStore)
	orderRepo := ordermem.NewRepository()
	orders := orderapp.NewService(log, orderRepo, ledger, pricer)

	return &world{
		catalog:      catalog,
		ledger:       ledger,
		reservations: reservations,
		couponStore:  couponStore,
		orderRepo:    orderRepo,
		orders:       orders,
		checkout:     application.NewOrchestrator(log, catalog, reservations, pricer, orders),
	}
}

func (w *world) seed(t *testing.T, productID string, priceCents int64, stock int) {
	t.Helper()
	w.catalog.Put(application.Product{ID: productID, PriceCents: priceCents, Available: true})
	if stock > 0 {
		_, err := w.ledger.Receive(context.Background(), productID, stock, "po:seed-"+productID, "test")
		require.NoError(t, err)
	}
}

func (w *world) stock(t *testing.T, productID string) int {
	t.Helper()
	s, err := w.ledger.CurrentStock(context.Background(), productID)
	require.NoError(t, err)
	return s
}

func TestCheckoutHappyPath(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 1500, 10)
	w.seed(t, "sku-2", 2000, 5)

	o, err := w.checkout.Checkout(ctx, "user-1", []application.CartLine{
		{ProductID: "sku-1", Quantity: 2},
		{ProductID: "sku-2", Quantity: 1},
	}, "", orderdom.Address{Name: "A", Line1: "1 Main St"})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), o.ItemsCents)
	assert.Equal(t, int64(500), o.ShippingCents)
	assert.Equal(t, int64(400), o.TaxCents)
	assert.Equal(t, int64(5900), o.TotalCents)
	assert.Equal(t, orderdom.FulfillmentPending, o.Fulfillment)

	assert.Equal(t, 8, w.stock(t, "sku-1"))
	assert.Equal(t, 4, w.stock(t, "sku-2"))
	assert.Equal(t, 0, w.reservations.ActiveReserved("sku-1"))
	assert.Equal(t, 0, w.reservations.ActiveReserved("sku-2"))

	got, err := w.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.TotalCents, got.TotalCents)
}

func TestCheckoutMergesRepeatedCartLines(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 1000, 10)

	o, err := w.checkout.Checkout(ctx, "user-1", []application.CartLine{
		{ProductID: "sku-1", Quantity: 3},
		{ProductID: "sku-1", Quantity: 4},
	}, "", orderdom.Address{Name: "A", Line1: "1 Main St"})
	require.NoError(t, err)

	require.Len(t, o.Items, 1, "repeated lines collapse into a single order line")
	assert.Equal(t, 7, o.Items[0].Quantity)
	assert.Equal(t, int64(7000), o.ItemsCents)

	assert.Equal(t, 3, w.stock(t, "sku-1"), "every unit paid for must be deducted")
	assert.Equal(t, 0, w.reservations.ActiveReserved("sku-1"))
}

func TestCheckoutInsufficientStockRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 1500, 10)
	w.seed(t, "sku-2", 2000, 0)

	_, err := w.checkout.Checkout(ctx, "user-1", []application.CartLine{
		{ProductID: "sku-1", Quantity: 2},
		{ProductID: "sku-2", Quantity: 1},
	}, "", orderdom.Address{})
	var insufficient *reservationdom.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "sku-2", insufficient.ProductID)

	assert.Equal(t, 10, w.stock(t, "sku-1"), "reservation on the first line must be rolled back")
	assert.Equal(t, 0, w.reservations.ActiveReserved("sku-1"))
	assert.Empty(t, w.orderRepo.Events(), "no order may exist after an aborted checkout")
}

func TestCheckoutUnavailableProduct(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.catalog.Put(application.Product{ID: "sku-1", PriceCents: 1500, Available: false})

	_, err := w.checkout.Checkout(ctx, "user-1", []application.CartLine{{ProductID: "sku-1", Quantity: 1}}, "", orderdom.Address{})
	var unavailable *application.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestCheckoutCouponExhaustedRollsBackReservations(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 1500, 10)
	w.couponStore.Put(pricingdom.Coupon{
		ID: "c-1", Code: "SAVE10", Type: pricingdom.DiscountPercentage, Value: 10,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
		Active: true, UsageLimit: 1, UsedCount: 1,
	})

	_, err := w.checkout.Checkout(ctx, "user-1", []application.CartLine{{ProductID: "sku-1", Quantity: 1}}, "SAVE10", orderdom.Address{})
	require.ErrorIs(t, err, pricingdom.ErrCouponExhausted)

	assert.Equal(t, 10, w.stock(t, "sku-1"))
	assert.Equal(t, 0, w.reservations.ActiveReserved("sku-1"))
}

func TestCheckoutTotalsSurviveCatalogRepricing(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 1500, 10)

	o, err := w.checkout.Checkout(ctx, "user-1", []application.CartLine{{ProductID: "sku-1", Quantity: 2}}, "", orderdom.Address{})
	require.NoError(t, err)

	// Reprice the catalog after checkout; the order keeps its snapshot.
	w.catalog.Put(application.Product{ID: "sku-1", PriceCents: 9900, Available: true})

	got, err := w.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Items[0].UnitCents)
	assert.Equal(t, o.TotalCents, got.TotalCents)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 5, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.checkout.Checkout(ctx, "user-1", []application.CartLine{{ProductID: "sku-1", Quantity: 3}}, "", orderdom.Address{})
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			var insufficient *reservationdom.InsufficientStockError
			require.ErrorAs(t, err, &insufficient)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, w.stock(t, "sku-1"))
}

func TestCheckoutRejectsBadCarts(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.seed(t, "sku-1", 1500, 10)

	_, err := w.checkout.Checkout(ctx, "user-1", nil, "", orderdom.Address{})
	require.Error(t, err)

	_, err = w.checkout.Checkout(ctx, "user-1", []application.CartLine{{ProductID: "sku-1", Quantity: 0}}, "", orderdom.Address{})
	require.Error(t, err)
}
