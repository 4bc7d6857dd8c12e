// Command gateway-sim is a local stand-in for the RupantorPay API, used by
// the integration environment and for frontend development. It accepts
// create-charge requests, remembers them, and reports every transaction as
// COMPLETED on verify.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
)

type charge struct {
	OrderID       string           `json:"orderId"`
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	TotalAmount   string           `json:"totalAmount"`
	Currency      string           `json:"currency"`
	Items         []map[string]any `json:"items"`
}

type simulator struct {
	mu      sync.Mutex
	charges map[string]charge
	seq     atomic.Int64
	baseURL string
}

func main() {
	var addr, baseURL string
	flag.StringVar(&addr, "addr", "0.0.0.0:8091", "listen address")
	flag.StringVar(&baseURL, "base-url", "http://localhost:8091", "URL this simulator is reachable at")
	flag.Parse()

	sim := &simulator{charges: make(map[string]charge), baseURL: baseURL}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payment/create-charge", sim.createCharge)
	mux.HandleFunc("POST /api/payment/verify-charge", sim.verifyCharge)

	slog.Info("gateway simulator listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func (s *simulator) createCharge(w http.ResponseWriter, r *http.Request) {
	var req charge
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, map[string]any{"success": false, "message": "invalid charge request"})
		return
	}

	txn := fmt.Sprintf("SIMTXN%06d", s.seq.Add(1))
	s.mu.Lock()
	s.charges[txn] = req
	s.mu.Unlock()

	slog.Info("charge created", slog.String("transaction_id", txn), slog.String("order_id", req.OrderID))
	writeJSON(w, map[string]any{
		"success":     true,
		"payment_url": s.baseURL + "/pay/" + txn,
	})
}

func (s *simulator) verifyCharge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]any{"success": false, "error": "invalid request"})
		return
	}

	s.mu.Lock()
	c, ok := s.charges[req.TransactionID]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, map[string]any{"success": false, "error": "transaction not found"})
		return
	}

	writeJSON(w, map[string]any{
		"success": true,
		"data": map[string]any{
			"status":         "COMPLETED",
			"transaction_id": req.TransactionID,
			"payment_method": "bkash",
			"amount":         c.TotalAmount,
			"currency":       c.Currency,
			"fullname":       c.CustomerName,
			"email":          c.CustomerEmail,
			"meta_data": map[string]any{
				"orderId": c.OrderID,
				"items":   c.Items,
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
