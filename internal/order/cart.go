package order

import (
	"sync"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/product"
)

// Line is one product in the cart. Quantity is always at least 1.
type Line struct {
	Product  product.Product
	Quantity int
}

// Subtotal is price times quantity, in wei.
func (l Line) Subtotal() ethunit.Wei {
	return l.Product.PriceWei.Mul(int64(l.Quantity))
}

// Cart is the in-memory shopping cart. Lines are matched by product id.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func NewCart() *Cart {
	return &Cart{}
}

// Add puts one unit of p in the cart, incrementing an existing line.
func (c *Cart) Add(p product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// UpdateQuantity adds delta to a line. A change that would leave the line
// below 1 is ignored; use Remove to drop a line.
func (c *Cart) UpdateQuantity(id internal.Code, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID != id {
			continue
		}
		if next := c.lines[i].Quantity + delta; next > 0 {
			c.lines[i].Quantity = next
		}
		return
	}
}

func (c *Cart) Remove(id internal.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// TotalWei sums price times quantity over all lines.
func (c *Cart) TotalWei() ethunit.Wei {
	c.mu.Lock()
	defer c.mu.Unlock()
	return total(c.lines)
}

// TotalEther is TotalWei rendered in ether.
func (c *Cart) TotalEther() ethunit.Ether {
	return ethunit.EtherFromWei(c.TotalWei())
}

func total(lines []Line) ethunit.Wei {
	sum := ethunit.WeiFromInt64(0)
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
