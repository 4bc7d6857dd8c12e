package handler

import (
	"net/http"
	"time"

	"github.com/submonth/storefront/internal/domain/order"
)

type orderResponse struct {
	ID           string                `json:"id"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	Customer     order.Customer        `json:"customer"`
	Items        []order.LineItem      `json:"items"`
	Totals       order.Totals          `json:"totals"`
	Currency     string                `json:"currency"`
	Status       string                `json:"status"`
	DeliveryType string                `json:"deliveryType"`
	Notes        string                `json:"notes,omitempty"`
	Payment      *order.PaymentDetails `json:"paymentDetails,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Customer:     o.Customer,
		Items:        o.Items,
		Totals:       o.Totals,
		Currency:     string(o.Currency),
		Status:       string(o.Status),
		DeliveryType: o.DeliveryType,
		Notes:        o.Notes,
		Payment:      o.Payment,
	}
}

type checkoutRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
	Currency  string `json:"currency"`
}

type checkoutResponse struct {
	OrderID    string `json:"orderId"`
	PaymentURL string `json:"paymentUrl"`
}

// Checkout assembles the session's cart into a pending order and returns the
// gateway redirect URL.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), sid, order.CheckoutRequest{
		Customer: order.CustomerInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
		Notes:    req.Notes,
		Currency: req.Currency,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{OrderID: result.OrderID, PaymentURL: result.PaymentURL})
}

type verifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

// VerifyPayment settles the order for a gateway transaction. Verifying an
// already completed order returns it unchanged.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	o, err := h.reconciler.Reconcile(r.Context(), req.TransactionID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListCustomerOrders returns the order history for a customer email.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	orders, err := h.ledger.List(r.Context(), order.Filter{Email: email})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}
