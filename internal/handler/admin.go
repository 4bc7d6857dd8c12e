package handler

import (
	"net/http"

	"github.com/submonth/storefront/internal/domain/order"
)

// actionTargets maps admin order actions to their target status.
var actionTargets = map[string]order.Status{
	"process": order.StatusProcessing,
	"confirm": order.StatusCompleted,
	"cancel":  order.StatusCancelled,
	"reopen":  order.StatusProcessing,
}

// AdminListOrders returns orders filtered by free-text query and status.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	f := order.Filter{Query: r.URL.Query().Get("q")}

	if s := r.URL.Query().Get("status"); s != "" {
		status, err := order.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = status
	}

	orders, err := h.ledger.List(r.Context(), f)
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

// AdminOrderAction applies a named lifecycle action to an order. Reopening a
// cancelled order puts it back into processing, never pending.
func (h *Handler) AdminOrderAction(w http.ResponseWriter, r *http.Request) {
	target, ok := actionTargets[r.PathValue("action")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown order action")
		return
	}

	o, err := h.ledger.ApplyTransition(r.Context(), r.PathValue("id"), target, order.Update{})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type adminUpdateRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// AdminUpdateOrder applies a free-form status and/or notes update. A status
// equal to the current one is an idempotent no-op; a disallowed edge fails
// and nothing is written.
func (h *Handler) AdminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == nil && req.Notes == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	id := r.PathValue("id")
	target := order.Status("")
	if req.Status != nil {
		status, err := order.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		target = status
	} else {
		current, err := h.ledger.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		target = current.Status
	}

	o, err := h.ledger.ApplyTransition(r.Context(), id, target, order.Update{Notes: req.Notes})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
