package order

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/cart"
	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/currency"
)

// ErrEmptyCart is returned when checkout is attempted with no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

// InvalidCustomerDataError indicates a missing or malformed contact field.
type InvalidCustomerDataError struct {
	Field string
}

func (e *InvalidCustomerDataError) Error() string {
	return fmt.Sprintf("invalid customer data: %s", e.Field)
}

// UnknownProductError indicates a cart line whose product id does not resolve
// in the catalog snapshot. Assembly fails rather than silently dropping the
// line, which would under-charge the customer for a data-integrity problem.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s not in catalog", e.ProductID)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CustomerInput is the raw checkout contact form.
type CustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// AssembleInput is everything needed to turn a cart into an order draft: the
// cart lines, a catalog snapshot, the contact form, and the currency plus the
// exchange rate in effect right now. Conversion happens here exactly once; an
// order never carries mixed-currency lines.
type AssembleInput struct {
	Items    []cart.Item
	Products []catalog.Product
	Customer CustomerInput
	Notes    string
	Currency currency.Code
	Rate     decimal.Decimal
}

// Assembler builds immutable pending Order drafts. The clock is injectable
// for tests; it feeds both CreatedAt and the order number.
type Assembler struct {
	now func() time.Time
}

// NewAssembler returns an Assembler using the wall clock.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// NewAssemblerAt returns an Assembler with a fixed clock, for tests.
func NewAssemblerAt(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

// Assemble validates the input, resolves each cart line against the catalog,
// converts to the target currency, and returns a pending Order draft.
//
// Validation fails fast in a fixed sequence: empty cart, then contact fields.
// Each line uses the product's first pricing option. Totals are summed in USD
// and rounded once, after summation; per-line rounding would compound error
// and produce a different total.
func (a *Assembler) Assemble(in AssembleInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateCustomer(in.Customer); err != nil {
		return nil, err
	}

	byID := make(map[string]catalog.Product, len(in.Products))
	for _, p := range in.Products {
		byID[p.ID] = p
	}

	lines := make([]LineItem, 0, len(in.Items))
	subtotalUSD := decimal.Zero
	for _, item := range in.Items {
		p, ok := byID[item.ProductID]
		if !ok || len(p.Pricing) == 0 {
			return nil, &UnknownProductError{ProductID: item.ProductID}
		}

		opt := p.Pricing[0]
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotalUSD = subtotalUSD.Add(opt.Price.Mul(qty))

		lines = append(lines, LineItem{
			ProductID: item.ProductID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: currency.Convert(opt.Price, in.Currency, in.Rate),
			Duration:  opt.Duration,
		})
	}

	// Digital delivery: no tax, no shipping. Kept as explicit zero fields so
	// total = subtotal + tax + shipping holds by construction.
	subtotal := currency.Round(currency.Convert(subtotalUSD, in.Currency, in.Rate), in.Currency)
	tax := decimal.Zero
	shipping := decimal.Zero
	total := subtotal.Add(tax).Add(shipping)

	now := a.now()
	return &Order{
		ID:        OrderNumber(now),
		CreatedAt: now,
		UpdatedAt: now,
		Customer: Customer{
			Name:  strings.TrimSpace(in.Customer.FirstName) + " " + strings.TrimSpace(in.Customer.LastName),
			Email: in.Customer.Email,
			Phone: in.Customer.Phone,
		},
		Items:        lines,
		Totals:       Totals{Subtotal: subtotal, Tax: tax, Shipping: shipping, Total: total},
		Currency:     in.Currency,
		Status:       StatusPending,
		DeliveryType: "digital",
		Notes:        in.Notes,
		Version:      1,
	}, nil
}

func validateCustomer(c CustomerInput) error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"firstName", c.FirstName},
		{"lastName", c.LastName},
		{"email", c.Email},
		{"phone", c.Phone},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &InvalidCustomerDataError{Field: f.name}
		}
	}
	if !emailPattern.MatchString(c.Email) {
		return &InvalidCustomerDataError{Field: "email"}
	}
	return nil
}
