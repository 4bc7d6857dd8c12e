package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/submonth/storefront/internal/domain/cart"
	"github.com/submonth/storefront/internal/domain/currency"
	"github.com/submonth/storefront/internal/domain/order"
	"github.com/submonth/storefront/internal/domain/payment"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps domain errors onto the API contract: validation
// problems are 400, semantically invalid requests are 422, missing records
// 404, gateway verdicts and transport failures 502, everything else a
// generic 500 that never leaks internals.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidCustomer *order.InvalidCustomerDataError
		unknownProduct  *order.UnknownProductError
		badTransition   *order.InvalidTransitionError
		gatewayErr      *payment.GatewayError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, currency.ErrUnsupported),
		errors.As(err, &invalidCustomer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unknownProduct),
		errors.As(err, &badTransition),
		errors.Is(err, order.ErrVerificationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &gatewayErr):
		zctx.From(r.Context()).Warn("Gateway error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "payment gateway error")
	default:
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// sessionID extracts the cart session from the X-Session-ID header.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing X-Session-ID header")
		return "", false
	}
	return id, true
}
