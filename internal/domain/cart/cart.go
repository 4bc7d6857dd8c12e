// Package cart holds a customer's pending selections for one browsing
// session. The cart does not validate product ids against the catalog; that
// is the order assembler's job at checkout time.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// ErrItemNotFound is returned when mutating a line that is not in the cart.
var ErrItemNotFound = errors.New("item not in cart")

// Item is one cart line. Lines are keyed by product id; adding the same
// product twice merges into one line.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the per-session selection. It is persisted across reloads for the
// same session and cleared only by explicit customer action, so a failed
// payment attempt never loses the cart.
type Cart struct {
	SessionID string
	Items     []Item
	UpdatedAt time.Time
}

// New returns an empty cart for the given session.
func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID}
}

// Add merges qty into an existing line for productID, or appends a new line.
func (c *Cart) Add(productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			return nil
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty})
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

// Remove deletes the line for productID.
func (c *Cart) Remove(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear drops all lines.
func (c *Cart) Clear() {
	c.Items = nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Repository defines persistence for carts. Get returns an empty cart when
// the session has none yet.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}
