package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/Retail-Checkout-System/internal/order/domain"
)

// Event mirrors the outbox row the postgres repository writes; here it just
// accumulates so tests and the in-process dispatcher can observe lifecycle
// events.
type Event struct {
	OrderID string
	Type    string
	Payload []byte
}

type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	events []Event
}

func NewRepository() *Repository {
	return &Repository{orders: map[string]domain.Order{}}
}

func (r *Repository) Create(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return domain.ErrConcurrentModification
	}
	r.orders[o.ID] = o
	r.events = append(r.events, Event{OrderID: o.ID, Type: eventType, Payload: payload})
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (r *Repository) Update(ctx context.Context, o domain.Order, expectedVersion int64, eventType string, payload []byte, traceparent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	r.orders[o.ID] = o
	r.events = append(r.events, Event{OrderID: o.ID, Type: eventType, Payload: payload})
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *Repository) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
