// Package cart holds the per-session shopping carts.
package cart

import (
	"sync"

	"campuscrave/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrMixedVendors is returned when a product from a second vendor is added. An order is
// placed with a single vendor, so a cart never spans two.
var ErrMixedVendors = errors.New("cart already holds items from another vendor")

// Cart is an insertion-ordered list of items, unique by product id.
type Cart struct {
	mu    sync.Mutex
	items []models.CartItem
}

// Add increments the quantity of p if present, otherwise appends it with quantity 1.
func (c *Cart) Add(p models.Product) (models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) > 0 && c.items[0].VendorID != p.VendorID {
		return models.CartItem{}, errors.Wrapf(ErrMixedVendors, "product %s", p.ID)
	}
	c.merge(models.CartItem{Product: p, Quantity: 1})
	for _, it := range c.items {
		if it.ID == p.ID {
			return it, nil
		}
	}
	return models.CartItem{}, nil
}

// Remove drops the entry for productID. Absent ids are ignored.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Drain returns the current items and empties the cart in one step.
func (c *Cart) Drain() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	c.items = nil
	return items
}

// Restore puts items back after a failed checkout, ahead of anything added meanwhile. Items
// added in between are merged by product id; those from another vendor are discarded.
func (c *Cart) Restore(items []models.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := c.items
	c.items = nil
	for _, batch := range [][]models.CartItem{items, added} {
		for _, it := range batch {
			c.merge(it)
		}
	}
}

// merge must be called with mu held.
func (c *Cart) merge(it models.CartItem) {
	if len(c.items) > 0 && c.items[0].VendorID != it.VendorID {
		return
	}
	for i := range c.items {
		if c.items[i].ID == it.ID {
			c.items[i].Quantity += it.Quantity
			return
		}
	}
	c.items = append(c.items, it)
}

func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CartItem{}, c.items...)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// VendorID is the vendor every item belongs to, or "" for an empty cart.
func (c *Cart) VendorID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return ""
	}
	return c.items[0].VendorID
}

func (c *Cart) Total() float64 {
	return Total(c.Items())
}

// Total sums price times quantity without float drift.
func Total(items []models.CartItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f, _ := sum.Float64()
	return f
}
