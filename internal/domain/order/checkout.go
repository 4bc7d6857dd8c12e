package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/submonth/storefront/internal/domain/cart"
	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/currency"
	"github.com/submonth/storefront/internal/domain/payment"
	"github.com/submonth/storefront/internal/domain/siteconfig"
)

// createAttempts bounds order-number regeneration on a ledger conflict. The
// timestamp scheme can collide when two checkouts land on the same
// millisecond window; a conflict is detected by the unique constraint and the
// number is re-derived, never reused.
const createAttempts = 3

// CheckoutRequest is the checkout form submission for one session's cart.
type CheckoutRequest struct {
	Customer CustomerInput
	Notes    string
	Currency string
}

// CheckoutResult carries the persisted order id and the gateway redirect URL.
type CheckoutResult struct {
	OrderID    string
	PaymentURL string
}

// CheckoutService drives phase one of the payment saga: reserve a pending
// order in the ledger, then request a charge from the gateway. The order is
// persisted before the gateway is contacted; if charge creation fails the
// order is rolled back so no orphan pending records accumulate. The cart is
// never touched here: a failed attempt must not lose the customer's cart.
type CheckoutService struct {
	carts     cart.Repository
	catalog   catalog.Repository
	config    siteconfig.Repository
	ledger    Ledger
	gateway   payment.Gateway
	assembler *Assembler
}

// NewCheckoutService wires a CheckoutService from its collaborators.
func NewCheckoutService(
	carts cart.Repository,
	catalogRepo catalog.Repository,
	config siteconfig.Repository,
	ledger Ledger,
	gateway payment.Gateway,
	assembler *Assembler,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		catalog:   catalogRepo,
		config:    config,
		ledger:    ledger,
		gateway:   gateway,
		assembler: assembler,
	}
}

// Checkout assembles and persists a pending order for the session's cart and
// asks the gateway for a payment URL. Validation failures persist nothing.
func (s *CheckoutService) Checkout(ctx context.Context, sessionID string, req CheckoutRequest) (*CheckoutResult, error) {
	code, err := currency.Parse(req.Currency)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load site config")
	}

	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog snapshot")
	}

	o, err := s.assembler.Assemble(AssembleInput{
		Items:    c.Items,
		Products: products,
		Customer: req.Customer,
		Notes:    req.Notes,
		Currency: code,
		Rate:     cfg.USDToBDTRate,
	})
	if err != nil {
		return nil, err
	}

	if err := s.createWithRetry(ctx, o); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}

	result, err := s.gateway.CreateCharge(ctx, chargeRequest(o))
	if err != nil {
		// Roll back: the order never became externally visible, and keeping
		// it would leave an orphan pending record. The cart stays intact so
		// the customer can simply resubmit.
		if delErr := s.ledger.Delete(ctx, o.ID); delErr != nil {
			return nil, errors.Wrapf(err, "create charge (rollback of %s also failed: %v)", o.ID, delErr)
		}
		return nil, errors.Wrap(err, "create charge")
	}

	return &CheckoutResult{OrderID: o.ID, PaymentURL: result.PaymentURL}, nil
}

func (s *CheckoutService) createWithRetry(ctx context.Context, o *Order) error {
	var err error
	for attempt := range createAttempts {
		if err = s.ledger.Create(ctx, o); !errors.Is(err, ErrDuplicateID) {
			return err
		}
		o.ID = OrderNumber(time.Now().Add(time.Duration(attempt+1) * time.Millisecond))
	}
	return err
}

// chargeRequest maps an assembled order onto the gateway wire format. The
// total is formatted from the order's already-converted totals and never
// recomputed, so the gateway and the ledger always agree on the amount.
func chargeRequest(o *Order) payment.ChargeRequest {
	items := make([]payment.ChargeItem, len(o.Items))
	for i, li := range o.Items {
		items[i] = payment.ChargeItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			Price:     li.UnitPrice,
			Duration:  li.Duration,
		}
	}
	return payment.ChargeRequest{
		OrderID:       o.ID,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
		Items:         items,
		TotalAmount:   currency.FormatAmount(o.Totals.Total, o.Currency),
		Currency:      o.Currency,
	}
}
