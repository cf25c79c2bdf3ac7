package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/Retail-Checkout-System/internal/ledger/domain"
)

// Store keeps the ledger in process memory. It backs unit tests and
// single-node deployments that do not need the postgres store.
type Store struct {
	mu      sync.RWMutex
	entries []domain.Entry
	seen    map[string]struct{}
}

func NewStore() *Store {
	return &Store{seen: map[string]struct{}{}}
}

func (s *Store) Insert(ctx context.Context, e domain.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.IdempotencyKey()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	s.entries = append(s.entries, e)
	return true, nil
}

func (s *Store) Exists(ctx context.Context, causeRef string, kind domain.Kind, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[domain.Key(causeRef, kind, productID)]
	return ok, nil
}

func (s *Store) Sum(ctx context.Context, productID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0
	for _, e := range s.entries {
		if e.ProductID == productID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (s *Store) ByProduct(ctx context.Context, productID string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Entry
	for _, e := range s.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}
