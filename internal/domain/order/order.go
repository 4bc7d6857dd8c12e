package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/currency"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions is the only source of truth for allowed status edges. Both the
// payment reconciler and the admin controller go through Transition; there is
// no other mutation path for Status.
//
// Once an order leaves pending it can never return, and a cancelled order can
// only be reopened into processing, never jump straight to completed.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusCancelled},
	StatusCancelled:  {StatusProcessing},
}

// ParseStatus validates a wire-level status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", errors.Errorf("unknown order status %q", s)
	}
}

// InvalidTransitionError indicates a requested status edge is not in the
// transition table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

// Transition returns the new status for a requested edge. Re-requesting the
// current status is an idempotent no-op success: the reconciler and a human
// admin may race to apply the same target state, and neither must fail.
func Transition(current, target Status) (Status, error) {
	if current == target {
		return current, nil
	}
	for _, allowed := range transitions[current] {
		if allowed == target {
			return target, nil
		}
	}
	return current, &InvalidTransitionError{From: current, To: target}
}

// Customer identifies the buyer of an order.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// LineItem is one priced order line. Unit prices are in the order currency
// and immutable after assembly; lines are never retroactively re-priced.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	Duration  string          `json:"duration"`
}

// Totals holds the order's money summary. Total equals
// Subtotal + Tax + Shipping at creation time and forever after.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// PaymentDetails is attached exactly once, when the gateway confirms the
// charge completed.
type PaymentDetails struct {
	TransactionID string          `json:"transactionId"`
	PaymentMethod string          `json:"paymentMethod"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	Currency      string          `json:"currency"`
}

// Order is the persisted order aggregate. The number is globally unique and,
// once assigned, never reused or reassigned.
type Order struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Customer     Customer
	Items        []LineItem
	Totals       Totals
	Currency     currency.Code
	Status       Status
	DeliveryType string
	Notes        string
	Payment      *PaymentDetails
	Version      int64
}

// OrderNumber derives the wire-visible order number from a timestamp: "ORD-"
// plus the 8 least-significant digits of the millisecond clock. Uniqueness is
// enforced by the ledger; callers regenerate on conflict.
func OrderNumber(now time.Time) string {
	ms := now.UnixMilli()
	return fmt.Sprintf("ORD-%08d", ms%100_000_000)
}

// Sentinel errors for ledger operations.
var (
	ErrNotFound    = errors.New("order not found")
	ErrDuplicateID = errors.New("order number already assigned")
)

// Filter narrows a ledger listing. Query is matched as a substring of order
// number, customer name, and customer email; Status and Email are exact.
type Filter struct {
	Query  string
	Status Status
	Email  string
}

// Update carries optional fields applied together with a status transition.
// Payment is attached only when the order carries none yet, so a second apply
// with the same details is a no-op, never a duplicate.
type Update struct {
	Notes   *string
	Payment *PaymentDetails
}

// Ledger is the persisted collection of orders.
//
// ApplyTransition is the single mutation primitive: it validates the edge
// with Transition, applies the Update, bumps UpdatedAt and Version, and
// persists, all as one atomic unit serialized per order id. A customer
// returning from the gateway and an admin acting on the same order cannot
// lose writes. Delete exists only to roll back a pending order whose gateway
// charge creation failed before the order became externally visible.
type Ledger interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	ApplyTransition(ctx context.Context, id string, target Status, upd Update) (*Order, error)
	Delete(ctx context.Context, id string) error
	// CancelStalePending cancels every order still pending that was created
	// before olderThan, atomically per order, and returns the affected ids.
	// An order paid while the sweep runs must not be cancelled.
	CancelStalePending(ctx context.Context, olderThan time.Time) ([]string, error)
}
