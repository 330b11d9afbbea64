package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "negative with symbol", raw: "-12,34 €", want: "-12.34"},
		{name: "thousands separator", raw: "1.234,56", want: "1234.56"},
		{name: "integer", raw: "344", want: "344"},
		{name: "negative fraction", raw: "-0,50", want: "-0.5"},
		{name: "padded", raw: "  -800,00  ", want: "-800"},
		{name: "currency code", raw: "-1.000.000,01 EUR", want: "-1000000.01"},
		{name: "unicode minus", raw: "−5,00", want: "-5"},
		{name: "non-breaking space", raw: "-7,10 €", want: "-7.1"},
		{name: "positive sign stripped", raw: "+20,00", want: "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "", want: ErrEmptyAmount},
		{name: "blank", raw: "   ", want: ErrEmptyAmount},
		{name: "letters", raw: "abc", want: ErrMalformedAmount},
		{name: "lone minus", raw: "-", want: ErrMalformedAmount},
		{name: "two decimal commas", raw: "1,2,3", want: ErrMalformedAmount},
		{name: "minus in the middle", raw: "12-3", want: ErrMalformedAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, got.IsZero())
		})
	}
}

func TestParseOrZero(t *testing.T) {
	for _, raw := range []string{"", "abc", "-", "€"} {
		assert.True(t, ParseOrZero(raw).IsZero(), "raw %q", raw)
	}
	assert.True(t, decimal.RequireFromString("-12.34").Equal(ParseOrZero("-12,34 €")))
}

func TestParse_Deterministic(t *testing.T) {
	first := ParseOrZero("-1.234,56 €")
	for i := 0; i < 10; i++ {
		assert.True(t, first.Equal(ParseOrZero("-1.234,56 €")))
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "-1234.5", want: "-1.234,50 €"},
		{in: "0", want: "0,00 €"},
		{in: "-0.5", want: "-0,50 €"},
		{in: "999.999", want: "1.000,00 €"},
		{in: "123456", want: "123.456,00 €"},
		{in: "-12345678901234567.89", want: "-12.345.678.901.234.567,89 €"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	d := decimal.RequireFromString("-98765432109876543.21")
	got, err := Parse(Format(d))
	require.NoError(t, err)
	assert.True(t, d.Equal(got), "got %s", got)
}
