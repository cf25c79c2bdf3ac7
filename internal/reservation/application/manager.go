package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	ledgerdom "github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	"github.com/dmehra2102/Retail-Checkout-System/internal/reservation/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultTTL     = 2 * time.Minute
	defaultMaxWait = 2 * time.Second
	sweepInterval  = time.Second
)

// productState serializes the check-then-reserve sequence for one product.
// The semaphore is the exclusivity mechanism; the mutex only guards the map
// so ActiveReserved can be read while a commit holds the semaphore.
type productState struct {
	sem    *semaphore.Weighted
	mu     sync.Mutex
	active map[string]domain.Reservation
}

// Manager bridges instantaneous ledger truth and the multi-step checkout.
// Reservations live only in memory: a crashed orchestrator simply lets them
// expire.
type Manager struct {
	log     *slog.Logger
	ledger  Ledger
	maxWait time.Duration

	mu       sync.Mutex
	products map[string]*productState
	index    map[string]string // reservation id -> product id
}

func NewManager(log *slog.Logger, ledger Ledger) *Manager {
	return &Manager{
		log:      log,
		ledger:   ledger,
		maxWait:  defaultMaxWait,
		products: map[string]*productState{},
		index:    map[string]string{},
	}
}

func (m *Manager) stateFor(productID string) *productState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.products[productID]
	if !ok {
		st = &productState{
			sem:    semaphore.NewWeighted(1),
			active: map[string]domain.Reservation{},
		}
		m.products[productID] = st
	}
	return st
}

func (m *Manager) acquire(ctx context.Context, st *productState) error {
	waitCtx, cancel := context.WithTimeout(ctx, m.maxWait)
	defer cancel()
	if err := st.sem.Acquire(waitCtx, 1); err != nil {
		return domain.ErrBusy
	}
	return nil
}

// Reserve holds qty units of the product for orderRef until ttl elapses.
// Availability check and insertion happen under the product's semaphore, so
// two concurrent checkouts can never both see the same stale availability.
func (m *Manager) Reserve(ctx context.Context, productID string, qty int, orderRef string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	st := m.stateFor(productID)
	if err := m.acquire(ctx, st); err != nil {
		return "", err
	}
	defer st.sem.Release(1)

	stock, err := m.ledger.CurrentStock(ctx, productID)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	available := stock - st.activeSum(now)
	if available < qty {
		return "", &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
	}

	res := domain.Reservation{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  qty,
		OrderRef:  orderRef,
		ExpiresAt: now.Add(ttl),
	}
	st.mu.Lock()
	st.active[res.ID] = res
	st.mu.Unlock()

	m.mu.Lock()
	m.index[res.ID] = productID
	m.mu.Unlock()

	m.log.Info("stock reserved", "reservation_id", res.ID, "product", productID, "qty", qty, "order_ref", orderRef)
	return res.ID, nil
}

// Commit turns the reservation into a durable outbound ledger entry and
// discards it. Removal and append both happen under the product semaphore so
// no concurrent reserve can observe the half-applied state. The ledger append
// is keyed by the order reference, so a retried commit after partial failure
// appends nothing twice.
func (m *Manager) Commit(ctx context.Context, reservationID string) error {
	st, res, err := m.remove(ctx, reservationID)
	if err != nil {
		return err
	}
	defer st.sem.Release(1)

	_, err = m.ledger.Append(ctx, ledgerdom.Entry{
		ProductID: res.ProductID,
		Delta:     -res.Quantity,
		Kind:      ledgerdom.KindOutbound,
		CauseRef:  "checkout:" + res.OrderRef,
		Actor:     "checkout",
	})
	if err != nil {
		// Put the hold back so the caller can retry or cancel.
		st.mu.Lock()
		st.active[res.ID] = res
		st.mu.Unlock()
		m.mu.Lock()
		m.index[res.ID] = res.ProductID
		m.mu.Unlock()
		return err
	}
	m.log.Info("reservation committed", "reservation_id", res.ID, "product", res.ProductID, "qty", res.Quantity)
	return nil
}

// Cancel discards the reservation without touching the ledger. Cancelling an
// unknown or expired reservation is a no-op.
func (m *Manager) Cancel(ctx context.Context, reservationID string) error {
	st, res, err := m.remove(ctx, reservationID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil
		}
		return err
	}
	st.sem.Release(1)
	m.log.Info("reservation cancelled", "reservation_id", res.ID, "product", res.ProductID)
	return nil
}

// remove pulls the reservation out of the active set. On success the product
// semaphore is still held and the caller must release it.
func (m *Manager) remove(ctx context.Context, reservationID string) (*productState, domain.Reservation, error) {
	m.mu.Lock()
	productID, ok := m.index[reservationID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.Reservation{}, domain.ErrNotFound
	}

	st := m.stateFor(productID)
	if err := m.acquire(ctx, st); err != nil {
		return nil, domain.Reservation{}, err
	}

	st.mu.Lock()
	res, ok := st.active[reservationID]
	if ok {
		delete(st.active, reservationID)
	}
	st.mu.Unlock()

	m.mu.Lock()
	delete(m.index, reservationID)
	m.mu.Unlock()

	if !ok || res.Expired(time.Now().UTC()) {
		st.sem.Release(1)
		return nil, domain.Reservation{}, domain.ErrNotFound
	}
	return st, res, nil
}

// ActiveReserved implements the ledger's reserved view. Expired holds stop
// counting immediately, before the sweeper gets to them.
func (m *Manager) ActiveReserved(productID string) int {
	m.mu.Lock()
	st, ok := m.products[productID]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return st.activeSum(time.Now().UTC())
}

func (st *productState) activeSum(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	sum := 0
	for _, r := range st.active {
		if !r.Expired(now) {
			sum += r.Quantity
		}
	}
	return sum
}

// RunSweeper reaps expired reservations until ctx is done. Expiry is the sole
// crash-recovery mechanism; no explicit cancel signal is required.
func (m *Manager) RunSweeper(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sweep(time.Now().UTC())
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	states := make([]*productState, 0, len(m.products))
	for _, st := range m.products {
		states = append(states, st)
	}
	m.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		for id, r := range st.active {
			if r.Expired(now) {
				delete(st.active, id)
				m.mu.Lock()
				delete(m.index, id)
				m.mu.Unlock()
				m.log.Info("reservation expired", "reservation_id", id, "product", r.ProductID, "qty", r.Quantity)
			}
		}
		st.mu.Unlock()
	}
}
