package application_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	ledgerapp "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/application"
	ledgerdom "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	ledgermem "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/infrastructure/memory"
	"github.com/dmehra2102/Retail-Checkout-System/internal/reservation/application"
	"github.com/dmehra2102/Retail-Checkout-System/internal/reservation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, stock int) (*application.Manager, *ledgerapp.Service) {
	t.Helper()
	ledger := ledgerapp.NewService(slog.Default(), ledgermem.NewStore())
	mgr := application.NewManager(slog.Default(), ledger)
	ledger.SetReservedView(mgr)
	if stock > 0 {
		_, err := ledger.Receive(context.Background(), "sku-1", stock, "po:seed", "test")
		require.NoError(t, err)
	}
	return mgr, ledger
}

func TestReserveAgainstAvailableStock(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t, 5)

	id, err := mgr.Reserve(ctx, "sku-1", 3, "order-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 3, mgr.ActiveReserved("sku-1"))

	// Only 2 left unpromised.
	_, err = mgr.Reserve(ctx, "sku-1", 3, "order-2", time.Minute)
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = mgr.Reserve(ctx, "sku-1", 3, "order", time.Minute)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			var insufficient *domain.InsufficientStockError
			require.ErrorAs(t, err, &insufficient)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "with stock 5, exactly one of two 3-unit holds must fail")
	assert.Equal(t, 3, mgr.ActiveReserved("sku-1"))
}

func TestCommitWritesOutboundEntry(t *testing.T) {
	ctx := context.Background()
	mgr, ledger := setup(t, 5)

	id, err := mgr.Reserve(ctx, "sku-1", 2, "order-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, mgr.Commit(ctx, id))

	stock, err := ledger.CurrentStock(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, mgr.ActiveReserved("sku-1"))

	recorded, err := ledger.Recorded(ctx, "checkout:order-1", ledgerdom.KindOutbound, "sku-1")
	require.NoError(t, err)
	assert.True(t, recorded)

	// The hold is gone; a second commit of the same id is ErrNotFound.
	assert.ErrorIs(t, mgr.Commit(ctx, id), domain.ErrNotFound)
}

func TestCancelReleasesHold(t *testing.T) {
	ctx := context.Background()
	mgr, ledger := setup(t, 5)

	id, err := mgr.Reserve(ctx, "sku-1", 5, "order-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, mgr.Cancel(ctx, id))
	assert.Equal(t, 0, mgr.ActiveReserved("sku-1"))

	// Cancel never touches the ledger.
	stock, err := ledger.CurrentStock(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	// Unknown reservation is a no-op.
	require.NoError(t, mgr.Cancel(ctx, "no-such-id"))
}

func TestExpiredReservationStopsCounting(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t, 5)

	id, err := mgr.Reserve(ctx, "sku-1", 5, "order-1", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 5, mgr.ActiveReserved("sku-1"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, mgr.ActiveReserved("sku-1"), "expired hold must release capacity before the sweeper runs")

	// The stock is usable again by a new reservation.
	_, err = mgr.Reserve(ctx, "sku-1", 5, "order-2", time.Minute)
	require.NoError(t, err)

	// The stale hold cannot be committed anymore.
	assert.ErrorIs(t, mgr.Commit(ctx, id), domain.ErrNotFound)
}

func TestReserveUnknownProduct(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t, 0)

	_, err := mgr.Reserve(ctx, "sku-unknown", 1, "order-1", time.Minute)
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)
}
