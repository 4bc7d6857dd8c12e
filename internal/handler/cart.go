package handler

import (
	"net/http"
	"time"

	"github.com/submonth/storefront/internal/domain/cart"
)

type cartResponse struct {
	Items []cart.Item `json:"items"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{Items: items}
}

// GetCart returns the session's cart, empty when none exists yet.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddCartItem merges a quantity into the session's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req cart.Item
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}

	h.mutateCart(w, r, sid, func(c *cart.Cart) error {
		return c.Add(req.ProductID, req.Quantity)
	})
}

// UpdateCartItem replaces the quantity of one cart line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	productID := r.PathValue("productId")
	h.mutateCart(w, r, sid, func(c *cart.Cart) error {
		return c.SetQuantity(productID, req.Quantity)
	})
}

// RemoveCartItem drops one line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	productID := r.PathValue("productId")
	h.mutateCart(w, r, sid, func(c *cart.Cart) error {
		return c.Remove(productID)
	})
}

// ClearCart empties the session's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	h.mutateCart(w, r, sid, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, sid string, mutate func(*cart.Cart) error) {
	c, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := mutate(c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	c.UpdatedAt = time.Now().UTC()

	if err := h.carts.Save(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}
