package order

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/cart"
	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/payment"
	"github.com/submonth/storefront/internal/domain/siteconfig"
)

// memLedger is an in-memory Ledger with the same transition semantics as the
// Postgres implementation, for exercising the checkout and reconcile flows.
type memLedger struct {
	mu        sync.Mutex
	orders    map[string]*Order
	createErr error
}

func newMemLedger() *memLedger {
	return &memLedger{orders: make(map[string]*Order)}
}

func (l *memLedger) Create(_ context.Context, o *Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	if _, ok := l.orders[o.ID]; ok {
		return ErrDuplicateID
	}
	cp := *o
	l.orders[o.ID] = &cp
	return nil
}

func (l *memLedger) Get(_ context.Context, id string) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (l *memLedger) List(_ context.Context, _ Filter) ([]Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (l *memLedger) ApplyTransition(_ context.Context, id string, target Status, upd Update) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	next, err := Transition(o.Status, target)
	if err != nil {
		return nil, err
	}
	o.Status = next
	if upd.Notes != nil {
		o.Notes = *upd.Notes
	}
	if upd.Payment != nil && o.Payment == nil {
		pd := *upd.Payment
		o.Payment = &pd
	}
	o.UpdatedAt = time.Now()
	o.Version++
	cp := *o
	return &cp, nil
}

func (l *memLedger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[id]; !ok {
		return ErrNotFound
	}
	delete(l.orders, id)
	return nil
}

func (l *memLedger) CancelStalePending(_ context.Context, olderThan time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for id, o := range l.orders {
		if o.Status == StatusPending && o.CreatedAt.Before(olderThan) {
			o.Status = StatusCancelled
			o.Version++
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type mockCartRepo struct {
	carts   map[string]*cart.Cart
	saved   int
	deleted int
}

func newMockCartRepo(carts ...*cart.Cart) *mockCartRepo {
	m := &mockCartRepo{carts: make(map[string]*cart.Cart)}
	for _, c := range carts {
		m.carts[c.SessionID] = c
	}
	return m
}

func (m *mockCartRepo) Get(_ context.Context, sessionID string) (*cart.Cart, error) {
	if c, ok := m.carts[sessionID]; ok {
		return c, nil
	}
	return cart.New(sessionID), nil
}

func (m *mockCartRepo) Save(_ context.Context, c *cart.Cart) error {
	m.carts[c.SessionID] = c
	m.saved++
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	m.deleted++
	return nil
}

type mockCatalog struct {
	products []catalog.Product
}

func (m *mockCatalog) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, nil
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []catalog.Product
	for _, p := range m.products {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockConfigRepo struct {
	rate decimal.Decimal
}

func (m *mockConfigRepo) Get(_ context.Context) (*siteconfig.Config, error) {
	cfg := siteconfig.Default()
	if !m.rate.IsZero() {
		cfg.USDToBDTRate = m.rate
	}
	return cfg, nil
}

func (m *mockConfigRepo) Save(_ context.Context, _ *siteconfig.Config) error {
	return nil
}

type mockGateway struct {
	createResult *payment.ChargeResult
	createErr    error
	createCalls  int
	lastCharge   payment.ChargeRequest

	verifyResults []*payment.VerifyResult
	verifyErrs    []error
	verifyCalls   int
}

func (m *mockGateway) CreateCharge(_ context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	m.createCalls++
	m.lastCharge = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResult, nil
}

func (m *mockGateway) VerifyCharge(_ context.Context, _ string) (*payment.VerifyResult, error) {
	i := m.verifyCalls
	m.verifyCalls++
	var err error
	if i < len(m.verifyErrs) {
		err = m.verifyErrs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(m.verifyResults) {
		return m.verifyResults[i], nil
	}
	if n := len(m.verifyResults); n > 0 {
		return m.verifyResults[n-1], nil
	}
	return nil, &payment.GatewayError{Op: "verify", Message: "no result configured"}
}

func testProduct(id, name, price, duration string) catalog.Product {
	return catalog.Product{
		ID:   id,
		Name: name,
		Pricing: []catalog.PricingOption{
			{Duration: duration, Price: decimal.RequireFromString(price)},
		},
	}
}

func testCustomer() CustomerInput {
	return CustomerInput{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Phone:     "+880 1711-000000",
	}
}
