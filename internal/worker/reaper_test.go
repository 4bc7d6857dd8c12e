package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submonth/storefront/internal/domain/order"
)

type stubLedger struct {
	mu      sync.Mutex
	created map[string]time.Time
	status  map[string]order.Status
	sweeps  int
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		created: make(map[string]time.Time),
		status:  make(map[string]order.Status),
	}
}

func (s *stubLedger) add(id string, st order.Status, createdAt time.Time) {
	s.status[id] = st
	s.created[id] = createdAt
}

func (s *stubLedger) Create(context.Context, *order.Order) error { return nil }

func (s *stubLedger) Get(_ context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &order.Order{ID: id, Status: st}, nil
}

func (s *stubLedger) List(context.Context, order.Filter) ([]order.Order, error) { return nil, nil }

func (s *stubLedger) ApplyTransition(_ context.Context, id string, target order.Status, _ order.Update) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	next, err := order.Transition(st, target)
	if err != nil {
		return nil, err
	}
	s.status[id] = next
	return &order.Order{ID: id, Status: next}, nil
}

func (s *stubLedger) Delete(context.Context, string) error { return nil }

func (s *stubLedger) CancelStalePending(_ context.Context, olderThan time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps++
	var ids []string
	for id, st := range s.status {
		if st == order.StatusPending && s.created[id].Before(olderThan) {
			s.status[id] = order.StatusCancelled
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func TestSweepCancelsStalePending(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	ledger := newStubLedger()
	ledger.add("ORD-00000001", order.StatusPending, old)
	ledger.add("ORD-00000002", order.StatusPending, old)
	ledger.add("ORD-00000003", order.StatusPending, time.Now())
	ledger.add("ORD-00000004", order.StatusCompleted, old)

	r := NewReaper(ledger, 24*time.Hour, time.Minute)
	require.NoError(t, r.Sweep(context.Background()))

	assert.Equal(t, order.StatusCancelled, ledger.status["ORD-00000001"])
	assert.Equal(t, order.StatusCancelled, ledger.status["ORD-00000002"])
	assert.Equal(t, order.StatusPending, ledger.status["ORD-00000003"], "fresh order untouched")
	assert.Equal(t, order.StatusCompleted, ledger.status["ORD-00000004"], "paid order untouched")
}

func TestRunSweepsUntilContextCancel(t *testing.T) {
	ledger := newStubLedger()
	r := NewReaper(ledger, 24*time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	assert.Greater(t, ledger.sweeps, 0, "at least one sweep ran")
}
