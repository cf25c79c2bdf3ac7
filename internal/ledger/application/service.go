package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
	"github.com/google/uuid"
)

// Service owns all stock mutation. Current stock is always the running sum of
// appended entries; the per-product cache is invalidated on every append. The
// generation counter detects an append landing while a reader recomputes, so
// a stale sum is never cached over a fresh invalidation.
type Service struct {
	log   *slog.Logger
	store Store

	mu       sync.Mutex
	sums     map[string]int
	gens     map[string]uint64
	locks    map[string]*sync.Mutex
	reserved ReservedView
}

func NewService(log *slog.Logger, store Store) *Service {
	return &Service{
		log:   log,
		store: store,
		sums:  map[string]int{},
		gens:  map[string]uint64{},
		locks: map[string]*sync.Mutex{},
	}
}

// productLock serializes guard-plus-insert for one product. Checkout commits
// are already serialized by the reservation semaphore; this covers direct
// appends (adjustments, returns) racing them or each other.
func (s *Service) productLock(productID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[productID] = l
	}
	return l
}

// SetReservedView wires the reservation manager in after construction; the
// two components reference each other.
func (s *Service) SetReservedView(v ReservedView) {
	s.mu.Lock()
	s.reserved = v
	s.mu.Unlock()
}

// Append durably records the entry. Replaying the same cause is a no-op and
// returns the zero ID. Outbound and negative adjustment entries fail with
// InvalidDeltaError when they would drive stock below the quantity already
// promised to active reservations.
func (s *Service) Append(ctx context.Context, e domain.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	lock := s.productLock(e.ProductID)
	lock.Lock()
	defer lock.Unlock()

	if e.Delta < 0 {
		current, err := s.CurrentStock(ctx, e.ProductID)
		if err != nil {
			return "", err
		}
		if current+e.Delta-s.activeReserved(e.ProductID) < 0 {
			return "", &domain.InvalidDeltaError{
				ProductID: e.ProductID,
				Delta:     e.Delta,
				Reason:    "stock would go negative",
			}
		}
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	inserted, err := s.store.Insert(ctx, e)
	if err != nil {
		return "", err
	}
	if !inserted {
		s.log.Info("ledger append replayed", "cause", e.CauseRef, "kind", e.Kind, "product", e.ProductID)
		return "", nil
	}

	s.mu.Lock()
	delete(s.sums, e.ProductID)
	s.gens[e.ProductID]++
	s.mu.Unlock()

	s.log.Info("ledger append", "entry_id", e.ID, "product", e.ProductID, "delta", e.Delta, "kind", e.Kind, "cause", e.CauseRef)
	return e.ID, nil
}

func (s *Service) CurrentStock(ctx context.Context, productID string) (int, error) {
	s.mu.Lock()
	if sum, ok := s.sums[productID]; ok {
		s.mu.Unlock()
		return sum, nil
	}
	gen := s.gens[productID]
	s.mu.Unlock()

	sum, err := s.store.Sum(ctx, productID)
	if err != nil {
		return 0, err
	}

	// An append that landed while we were summing already invalidated the
	// cache; caching our pre-append sum would resurrect it, so only cache
	// when the generation is untouched.
	s.mu.Lock()
	if s.gens[productID] == gen {
		s.sums[productID] = sum
	}
	s.mu.Unlock()
	return sum, nil
}

// Receive records inbound stock, idempotent per receiving reference.
func (s *Service) Receive(ctx context.Context, productID string, qty int, causeRef, actor string) (string, error) {
	return s.Append(ctx, domain.Entry{
		ProductID: productID,
		Delta:     qty,
		Kind:      domain.KindInbound,
		CauseRef:  causeRef,
		Actor:     actor,
	})
}

// Adjust records a manual stocktake correction, positive or negative.
func (s *Service) Adjust(ctx context.Context, productID string, delta int, causeRef, actor string) (string, error) {
	return s.Append(ctx, domain.Entry{
		ProductID: productID,
		Delta:     delta,
		Kind:      domain.KindAdjustment,
		CauseRef:  causeRef,
		Actor:     actor,
	})
}

// Recorded reports whether an entry for the given cause, kind and product was
// ever appended. Compensation logic uses it to restore only what was actually
// deducted.
func (s *Service) Recorded(ctx context.Context, causeRef string, kind domain.Kind, productID string) (bool, error) {
	return s.store.Exists(ctx, causeRef, kind, productID)
}

func (s *Service) History(ctx context.Context, productID string) ([]domain.Entry, error) {
	return s.store.ByProduct(ctx, productID)
}

func (s *Service) activeReserved(productID string) int {
	s.mu.Lock()
	v := s.reserved
	s.mu.Unlock()
	if v == nil {
		return 0
	}
	return v.ActiveReserved(productID)
}
