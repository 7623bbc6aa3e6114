package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	code, err := ParseCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", code)

	_, err = ParseCurrency("dollars")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		wantErr  bool
	}{
		{"9.99", "USD", false},
		{"10", "USD", false},
		{"9.999", "USD", true},
		{"0", "USD", true},
		{"-1", "EUR", true},
		{"1000", "JPY", false},
		{"1000.5", "JPY", true},
		{"1.234", "BHD", false},
		{"5", "XYZ", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount+tt.currency, func(t *testing.T) {
			err := Validate(decimal.RequireFromString(tt.amount), tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMinorUnits(t *testing.T) {
	minor, err := ToMinor(decimal.RequireFromString("9.99"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(999), minor)

	minor, err = ToMinor(decimal.RequireFromString("1200"), "JPY")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), minor)

	assert.True(t, decimal.RequireFromString("29.00").Equal(FromMinor(2900, "usd")))
	assert.True(t, decimal.NewFromInt(500).Equal(FromMinor(500, "JPY")))
}

func TestFormat(t *testing.T) {
	s, err := Format(decimal.RequireFromString("9.9"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "9.90", s)

	s, err = Format(decimal.NewFromInt(1000), "JPY")
	require.NoError(t, err)
	assert.Equal(t, "1000", s)
}
