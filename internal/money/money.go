package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept for monetary amounts.
const Precision int32 = 2

// FromFloat converts a float amount into a fixed-precision decimal.
// Uses decimal arithmetic so 0.1+0.2 style errors never reach a comparison.
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(Precision)
}

// FromFloatExact converts a float amount using its shortest decimal form,
// keeping any digits beyond Precision so callers can reject them.
func FromFloatExact(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// ExceedsPrecision reports whether amount carries non-zero digits beyond Precision.
func ExceedsPrecision(amount decimal.Decimal) bool {
	return !amount.Equal(amount.Round(Precision))
}

// Parse reads a decimal amount from its string form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d.Round(Precision), nil
}

// IsPositive returns true if the amount is strictly greater than zero.
func IsPositive(amount decimal.Decimal) bool {
	return amount.Round(Precision).IsPositive()
}

// AtLeast returns true if amount meets or exceeds floor.
func AtLeast(amount, floor decimal.Decimal) bool {
	return amount.Round(Precision).GreaterThanOrEqual(floor.Round(Precision))
}

// Above returns true if amount is strictly greater than other.
func Above(amount, other decimal.Decimal) bool {
	return amount.Round(Precision).GreaterThan(other.Round(Precision))
}

// Format renders an amount with exactly Precision decimal places.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Precision)
}
