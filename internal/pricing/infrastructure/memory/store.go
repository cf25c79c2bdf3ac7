package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/Retail-Checkout-System/internal/pricing/application"
	"github.com/dmehra2102/Retail-Checkout-System/internal/pricing/domain"
)

type Store struct {
	mu          sync.Mutex
	coupons     map[string]domain.Coupon
	redemptions map[string]map[string]struct{} // code -> cause refs
}

func NewStore() *Store {
	return &Store{
		coupons:     map[string]domain.Coupon{},
		redemptions: map[string]map[string]struct{}{},
	}
}

func (s *Store) Put(c domain.Coupon) {
	s.mu.Lock()
	s.coupons[c.Code] = c
	s.mu.Unlock()
}

func (s *Store) GetByCode(ctx context.Context, code string) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[code]
	if !ok {
		return domain.Coupon{}, application.ErrCouponNotFound
	}
	return c, nil
}

func (s *Store) Redeem(ctx context.Context, code, causeRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[code]
	if !ok {
		return application.ErrCouponNotFound
	}
	refs := s.redemptions[code]
	if refs == nil {
		refs = map[string]struct{}{}
		s.redemptions[code] = refs
	}
	if _, done := refs[causeRef]; done {
		return nil
	}
	if c.UsedCount >= c.UsageLimit {
		return domain.ErrCouponExhausted
	}
	c.UsedCount++
	s.coupons[code] = c
	refs[causeRef] = struct{}{}
	return nil
}

func (s *Store) Unredeem(ctx context.Context, code, causeRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[code]
	if !ok {
		return application.ErrCouponNotFound
	}
	refs := s.redemptions[code]
	if refs == nil {
		return nil
	}
	if _, done := refs[causeRef]; !done {
		return nil
	}
	delete(refs, causeRef)
	c.UsedCount--
	s.coupons[code] = c
	return nil
}
