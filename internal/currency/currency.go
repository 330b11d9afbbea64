// Package currency parses and formats German/Euro amount strings.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned for blank cells.
	ErrEmptyAmount = errors.New("empty amount")
	// ErrMalformedAmount is returned when nothing numeric survives cleaning.
	ErrMalformedAmount = errors.New("malformed amount")
)

// Parse converts a locale formatted amount such as "-1.234,56 €" into a decimal.
//
// Thousands separators are dropped, the decimal comma becomes a point and
// every character outside [0-9.-] is discarded before parsing.
func Parse(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	cleaned := clean(raw)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	return d, nil
}

// ParseOrZero is Parse with every failure coalesced to zero. A single bad
// cell must never abort an import.
func ParseOrZero(raw string) decimal.Decimal {
	d, err := Parse(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func clean(raw string) string {
	s := strings.ReplaceAll(raw, "EUR", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders an amount the way German bank exports print it, e.g.
// "-1.234,56 €". It works on the decimal digits, so large values keep
// every digit.
func Format(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	b.WriteString(" €")
	return b.String()
}
