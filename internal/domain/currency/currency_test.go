package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, code := range []string{"USD", "BDT"} {
		c, err := Parse(code)
		require.NoError(t, err)
		assert.Equal(t, Code(code), c)
	}

	_, err := Parse("EUR")
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Parse("usd")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestConvert_USDUnchanged(t *testing.T) {
	amount := decimal.RequireFromString("19.99")
	got := Convert(amount, USD, DefaultUSDToBDTRate)
	assert.True(t, amount.Equal(got))
}

func TestConvert_BDTByRate(t *testing.T) {
	amount := decimal.RequireFromString("20.00")
	got := Convert(amount, BDT, decimal.NewFromInt(110))
	assert.True(t, decimal.NewFromInt(2200).Equal(got))
}

func TestRound(t *testing.T) {
	// BDT carries no fractional units.
	got := Round(decimal.RequireFromString("111.1"), BDT)
	assert.Equal(t, "111", got.String())

	// USD keeps two decimal places.
	got = Round(decimal.RequireFromString("19.995"), USD)
	assert.Equal(t, "20", got.String())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "2200", FormatAmount(decimal.NewFromInt(2200), BDT))
	assert.Equal(t, "20.00", FormatAmount(decimal.NewFromInt(20), USD))
	assert.Equal(t, "6.50", FormatAmount(decimal.RequireFromString("6.5"), USD))
}
