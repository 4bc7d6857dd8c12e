// Package worker hosts background loops that run alongside the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/submonth/storefront/internal/domain/order"
)

// Reaper cancels pending orders that were never paid. A pending order whose
// customer abandoned the gateway page stays pending forever otherwise; the
// cancelled state is recoverable, so an admin can still reopen one if the
// customer turns up with a payment receipt.
type Reaper struct {
	ledger    order.Ledger
	timeout   time.Duration
	interval  time.Duration
	cancelled metric.Int64Counter
}

// NewReaper returns a Reaper that cancels pending orders older than timeout,
// checking every interval.
func NewReaper(ledger order.Ledger, timeout, interval time.Duration) *Reaper {
	meter := otel.GetMeterProvider().Meter("storefront.worker")
	cancelled, _ := meter.Int64Counter("orders.reaped",
		metric.WithDescription("Stale pending orders cancelled by the reaper"))
	return &Reaper{ledger: ledger, timeout: timeout, interval: interval, cancelled: cancelled}
}

// Run blocks until ctx is cancelled, sweeping on every tick. Errors are
// logged and do not stop the loop; individual order failures do not stop
// the sweep.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				zctx.From(ctx).Error("Reaper sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep cancels every pending order older than the timeout. The ledger does
// this atomically per order, so one that completes concurrently (a late
// verify racing the sweep) is left untouched.
func (r *Reaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.timeout)
	ids, err := r.ledger.CancelStalePending(ctx, cutoff)
	if err != nil {
		return err
	}

	lg := zctx.From(ctx)
	for _, id := range ids {
		lg.Info("Cancelled stale pending order", zap.String("order_id", id))
	}
	r.cancelled.Add(ctx, int64(len(ids)))
	return nil
}
