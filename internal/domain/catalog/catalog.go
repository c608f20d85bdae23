package catalog

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Kind discriminates what a catalog item (and later a cart line) refers to.
type Kind string

const (
	// KindProduct is a pharmacy inventory product.
	KindProduct Kind = "product"
	// KindLabTest is a laboratory test type orderable at the counter.
	KindLabTest Kind = "lab_test"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindProduct || k == KindLabTest
}

// Item is one purchasable entry from the backend catalog. Prices and stock
// are whatever the backend reported at fetch time; the cart snapshots them
// again at add time and never re-reads them.
type Item struct {
	ID        int64
	Kind      Kind
	Name      string
	UnitPrice decimal.Decimal
	// Stock is the available quantity for products. Lab test types carry no
	// stock and always report zero here.
	Stock  int
	Active bool
}

// Purchasable filters items down to what the terminal may offer for sale:
// active products with stock on hand, and active lab test types.
func Purchasable(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Active {
			continue
		}
		if it.Kind == KindProduct && it.Stock <= 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Fetcher loads the full catalog from the backend.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]Item, error)
}

// Cache holds the most recent purchasable snapshot of the catalog. The
// terminal works against this snapshot between refreshes (stale-read model);
// the backend remains the arbiter of actual stock.
type Cache struct {
	fetcher Fetcher

	mu    sync.RWMutex
	items []Item
}

// NewCache returns an empty Cache backed by the given fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher}
}

// Refresh re-fetches the catalog and replaces the snapshot. On error the
// previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	items, err := c.fetcher.FetchCatalog(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = Purchasable(items)
	c.mu.Unlock()
	return nil
}

// Items returns a copy of the current snapshot.
func (c *Cache) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the snapshot item with the given kind and id.
func (c *Cache) Find(kind Kind, id int64) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.Kind == kind && it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
