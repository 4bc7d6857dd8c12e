// Package handler exposes the storefront API over net/http. Each route
// delegates to a domain service or repository and maps domain errors to the
// API's {code, message} error shape.
package handler

import (
	"net/http"

	"github.com/submonth/storefront/internal/domain/cart"
	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/order"
	"github.com/submonth/storefront/internal/domain/siteconfig"
)

// Handler holds the API's domain dependencies.
type Handler struct {
	carts      cart.Repository
	catalog    catalog.Repository
	config     siteconfig.Repository
	ledger     order.Ledger
	checkout   *order.CheckoutService
	reconciler *order.Reconciler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts cart.Repository,
	catalogRepo catalog.Repository,
	config siteconfig.Repository,
	ledger order.Ledger,
	checkout *order.CheckoutService,
	reconciler *order.Reconciler,
) *Handler {
	return &Handler{
		carts:      carts,
		catalog:    catalogRepo,
		config:     config,
		ledger:     ledger,
		checkout:   checkout,
		reconciler: reconciler,
	}
}

// Routes registers every API route on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/config", h.GetConfig)
	mux.HandleFunc("GET /api/products", h.ListProducts)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("POST /api/payment/verify", h.VerifyPayment)
	mux.HandleFunc("GET /api/orders", h.ListCustomerOrders)

	mux.HandleFunc("GET /api/admin/orders", h.AdminListOrders)
	mux.HandleFunc("POST /api/admin/orders/{id}/{action}", h.AdminOrderAction)
	mux.HandleFunc("PATCH /api/admin/orders/{id}", h.AdminUpdateOrder)
}
