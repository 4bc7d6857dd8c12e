package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/submonth/storefront/internal/domain/payment"
)

// ErrVerificationFailed is surfaced when the gateway cannot confirm a
// transaction. The order is left pending; no state regression is applied.
var ErrVerificationFailed = errors.New("payment could not be verified")

// Reconciler drives phase two of the payment saga: when the customer returns
// from the gateway with a transaction reference, it asks the gateway to
// verify the charge and finalizes the matching order.
//
// The order is located purely by the order id carried in the gateway's
// metadata; the process that created the charge is not guaranteed to be the
// one verifying it, so no in-memory state is consulted.
type Reconciler struct {
	ledger  Ledger
	gateway payment.Gateway

	attempts int
	backoff  time.Duration
}

// NewReconciler wires a Reconciler. The verify call targets an external
// service over the network, so transport failures are retried a bounded
// number of times with exponential backoff; a well-formed gateway answer is
// authoritative and never retried.
func NewReconciler(ledger Ledger, gateway payment.Gateway) *Reconciler {
	return &Reconciler{
		ledger:   ledger,
		gateway:  gateway,
		attempts: 3,
		backoff:  250 * time.Millisecond,
	}
}

// Reconcile verifies transactionID and, when the gateway reports COMPLETED,
// transitions the referenced order to completed with payment details attached
// exactly once. A repeat call for the same transaction is an idempotent
// success: the transition is a no-op and the details are not duplicated.
func (r *Reconciler) Reconcile(ctx context.Context, transactionID string) (*Order, error) {
	result, err := r.verify(ctx, transactionID)
	if err != nil {
		return nil, errors.Wrap(ErrVerificationFailed, err.Error())
	}
	if result.Status != payment.StatusCompleted {
		return nil, errors.Wrapf(ErrVerificationFailed, "gateway reports status %q", result.Status)
	}

	orderID := result.Meta.OrderID
	if orderID == "" {
		return nil, errors.Wrap(ErrVerificationFailed, "gateway metadata carries no order id")
	}

	o, err := r.ledger.ApplyTransition(ctx, orderID, StatusCompleted, Update{
		Payment: &PaymentDetails{
			TransactionID: result.TransactionID,
			PaymentMethod: result.PaymentMethod,
			PaidAmount:    result.Amount,
			Currency:      result.Currency,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "finalize order %s", orderID)
	}
	return o, nil
}

// verify calls the gateway, retrying transport errors only. A GatewayError is
// the gateway's own answer and is returned as-is on the first occurrence.
func (r *Reconciler) verify(ctx context.Context, transactionID string) (*payment.VerifyResult, error) {
	var lastErr error
	delay := r.backoff
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		result, err := r.gateway.VerifyCharge(ctx, transactionID)
		if err == nil {
			return result, nil
		}

		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
