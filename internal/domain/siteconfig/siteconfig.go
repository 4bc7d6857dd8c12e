package siteconfig

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/currency"
)

// Config holds the storefront's global settings. The USDToBDTRate is the
// single rate governing every currency conversion in the order subsystem.
type Config struct {
	USDToBDTRate       decimal.Decimal
	ContactPhone       string
	ContactWhatsapp    string
	ContactEmail       string
	SiteLogo           string
	Favicon            string
	HeroSliderInterval int
	HotDealsSpeed      int
}

// Default returns the configuration used before an admin has saved one.
func Default() *Config {
	return &Config{
		USDToBDTRate:       currency.DefaultUSDToBDTRate,
		ContactPhone:       "+880 1234-567890",
		ContactWhatsapp:    "+880 1234-567890",
		ContactEmail:       "info@submonth.com",
		HeroSliderInterval: 5000,
		HotDealsSpeed:      40,
	}
}

// Repository defines persistence for the single site configuration record.
type Repository interface {
	Get(ctx context.Context) (*Config, error)
	Save(ctx context.Context, cfg *Config) error
}
