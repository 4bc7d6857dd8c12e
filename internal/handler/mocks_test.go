package handler

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/cart"
	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/order"
	"github.com/submonth/storefront/internal/domain/payment"
	"github.com/submonth/storefront/internal/domain/siteconfig"
)

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string]*cart.Cart)}
}

func (m *memCarts) Get(_ context.Context, sessionID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[sessionID]; ok {
		cp := *c
		cp.Items = append([]cart.Item(nil), c.Items...)
		return &cp, nil
	}
	return cart.New(sessionID), nil
}

func (m *memCarts) Save(_ context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	m.carts[c.SessionID] = &cp
	return nil
}

func (m *memCarts) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

type memCatalog struct {
	products []catalog.Product
}

func (m *memCatalog) List(context.Context) ([]catalog.Product, error) {
	return m.products, nil
}

func (m *memCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type memConfig struct {
	cfg *siteconfig.Config
}

func (m *memConfig) Get(context.Context) (*siteconfig.Config, error) {
	if m.cfg == nil {
		return siteconfig.Default(), nil
	}
	return m.cfg, nil
}

func (m *memConfig) Save(_ context.Context, cfg *siteconfig.Config) error {
	m.cfg = cfg
	return nil
}

type memLedger struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemLedger() *memLedger {
	return &memLedger{orders: make(map[string]*order.Order)}
}

func (l *memLedger) Create(_ context.Context, o *order.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[o.ID]; ok {
		return order.ErrDuplicateID
	}
	cp := *o
	l.orders[o.ID] = &cp
	return nil
}

func (l *memLedger) Get(_ context.Context, id string) (*order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (l *memLedger) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []order.Order
	for _, o := range l.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Email != "" && o.Customer.Email != f.Email {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (l *memLedger) ApplyTransition(_ context.Context, id string, target order.Status, upd order.Update) (*order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	next, err := order.Transition(o.Status, target)
	if err != nil {
		return nil, err
	}
	o.Status = next
	if upd.Notes != nil {
		o.Notes = *upd.Notes
	}
	if upd.Payment != nil && o.Payment == nil {
		o.Payment = upd.Payment
	}
	o.UpdatedAt = time.Now().UTC()
	o.Version++
	cp := *o
	return &cp, nil
}

func (l *memLedger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(l.orders, id)
	return nil
}

func (l *memLedger) CancelStalePending(_ context.Context, olderThan time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for id, o := range l.orders {
		if o.Status == order.StatusPending && o.CreatedAt.Before(olderThan) {
			o.Status = order.StatusCancelled
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type mockGateway struct {
	mu           sync.Mutex
	chargeErr    error
	verifyResult *payment.VerifyResult
	verifyErr    error
}

func (g *mockGateway) CreateCharge(_ context.Context, _ payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &payment.ChargeResult{PaymentURL: "https://pay.example.com/c/test"}, nil
}

func (g *mockGateway) VerifyCharge(_ context.Context, _ string) (*payment.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResult, nil
}

func testProduct(id, name string, price string) catalog.Product {
	return catalog.Product{
		ID:   id,
		Name: name,
		Pricing: []catalog.PricingOption{
			{Duration: "1 month", Price: decimal.RequireFromString(price)},
		},
	}
}
