package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// PricingOption is one purchasable plan for a product. Prices are always
// stored in USD; conversion to the order currency happens at assembly time.
type PricingOption struct {
	Duration string          `json:"duration"`
	Price    decimal.Decimal `json:"price"`
}

// Product represents a digital catalog item. The first pricing option is the
// one used at checkout.
type Product struct {
	ID       string
	Name     string
	Category string
	Pricing  []PricingOption
	StockOut bool
}

// Repository defines read operations for the product catalog. The catalog is
// owned by the storefront's admin tooling; the order subsystem only reads it.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
