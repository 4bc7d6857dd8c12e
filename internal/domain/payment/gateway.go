// Package payment defines the contract with the external payment gateway.
// The gateway itself is an opaque service; the order subsystem depends only
// on the two operations declared here.
package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/currency"
)

// StatusCompleted is the only verification status that finalizes an order.
const StatusCompleted = "COMPLETED"

// ChargeItem mirrors one order line onto the gateway wire format.
type ChargeItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Duration  string          `json:"duration"`
}

// ChargeRequest asks the gateway to collect TotalAmount for OrderID.
// TotalAmount is a currency-appropriate string (integer for BDT, two-decimal
// for USD) computed from the already-converted order totals. It is never
// recomputed here; a second conversion could disagree with the order record.
type ChargeRequest struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []ChargeItem
	TotalAmount   string
	Currency      currency.Code
}

// ChargeResult holds the redirect URL for a successfully created charge.
type ChargeResult struct {
	PaymentURL string
}

// VerifyMeta carries the correlation data the gateway echoes back. OrderID is
// the only way the reconciler can locate the order: the process that created
// the charge is not necessarily the one verifying it.
type VerifyMeta struct {
	OrderID string
	Items   []ChargeItem
}

// VerifyResult reports the gateway's authoritative view of a transaction.
type VerifyResult struct {
	Status        string
	TransactionID string
	PaymentMethod string
	Amount        decimal.Decimal
	Currency      string
	Fullname      string
	Email         string
	Meta          VerifyMeta
}

// GatewayError is a business-level rejection from the gateway (success=false
// in the response envelope). It is authoritative and must not be retried.
type GatewayError struct {
	Op      string
	Message string
}

func (e *GatewayError) Error() string {
	return "gateway " + e.Op + ": " + e.Message
}

// Gateway is the boundary to the external payment service.
//
// CreateCharge failures require the caller to roll back the pending order;
// CreateCharge success means only that a redirect URL exists. The
// authoritative completion signal is VerifyCharge, never the redirect.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	VerifyCharge(ctx context.Context, transactionID string) (*VerifyResult, error)
}
