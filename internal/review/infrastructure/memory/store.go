package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/Retail-Checkout-System/internal/review/domain"
)

type Store struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
}

func NewStore() *Store {
	return &Store{reviews: map[string]domain.Review{}}
}

func (s *Store) Save(ctx context.Context, r domain.Review) error {
	s.mu.Lock()
	s.reviews[r.ID] = r
	s.mu.Unlock()
	return nil
}

func (s *Store) ByProduct(productID string) []domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}
