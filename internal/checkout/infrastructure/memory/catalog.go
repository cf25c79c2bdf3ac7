package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmehra2102/Retail-Checkout-System/internal/checkout/application"
)

// Catalog is an in-process stand-in for the catalog service.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]application.Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: map[string]application.Product{}}
}

func (c *Catalog) Put(p application.Product) {
	c.mu.Lock()
	c.products[p.ID] = p
	c.mu.Unlock()
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (application.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return application.Product{}, fmt.Errorf("product not found: %s", id)
	}
	return p, nil
}
