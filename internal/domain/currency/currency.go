// Package currency is the single conversion point between the catalog's USD
// prices and the order currency. All amounts flow through here exactly once,
// after summation, so rounding never compounds per line.
package currency

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Code identifies a supported order currency.
type Code string

const (
	USD Code = "USD"
	BDT Code = "BDT"
)

// ErrUnsupported is returned for any currency code other than USD or BDT.
var ErrUnsupported = errors.New("unsupported currency")

// DefaultUSDToBDTRate is used when the site configuration carries no rate.
var DefaultUSDToBDTRate = decimal.NewFromInt(110)

// Parse validates a wire-level currency code.
func Parse(s string) (Code, error) {
	switch Code(s) {
	case USD, BDT:
		return Code(s), nil
	default:
		return "", errors.Wrapf(ErrUnsupported, "%q", s)
	}
}

// Convert translates a USD amount into the target currency without rounding.
// For USD the amount is returned unchanged; for BDT it is multiplied by the
// configured exchange rate.
func Convert(usd decimal.Decimal, code Code, rate decimal.Decimal) decimal.Decimal {
	if code == BDT {
		return usd.Mul(rate)
	}
	return usd
}

// Round applies the currency's final rounding: two decimal places for USD,
// whole units for BDT (no fractional taka).
func Round(amount decimal.Decimal, code Code) decimal.Decimal {
	if code == BDT {
		return amount.Round(0)
	}
	return amount.Round(2)
}

// FormatAmount renders an already-converted, already-rounded amount the way
// the payment gateway expects it: an integer string for BDT, a two-decimal
// string for USD.
func FormatAmount(amount decimal.Decimal, code Code) string {
	if code == BDT {
		return amount.StringFixed(0)
	}
	return amount.StringFixed(2)
}
