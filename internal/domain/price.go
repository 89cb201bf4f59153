package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var maxPrice = decimal.NewFromInt(math.MaxInt64)

// ParsePrice converts a decimal string such as "148.50" to integer ticks
// with scale decimal places. It rejects values with more precision than the
// scale allows instead of rounding them.
func ParsePrice(s string, scale int32) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("price %q is not a decimal number", s)
	}

	ticks := d.Shift(scale)
	if !ticks.Equal(ticks.Truncate(0)) {
		return 0, fmt.Errorf("price %q has more than %d decimal places", s, scale)
	}
	if ticks.Abs().GreaterThan(maxPrice) {
		return 0, fmt.Errorf("price %q is out of range", s)
	}
	return Price(ticks.IntPart()), nil
}

// PriceFromTicks converts an exact tick count to a Price. It fails when d
// is fractional or does not fit in a Price.
func PriceFromTicks(d decimal.Decimal) (Price, error) {
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("ticks %s are not a whole number", d)
	}
	if d.Abs().GreaterThan(maxPrice) {
		return 0, fmt.Errorf("ticks %s are out of range", d)
	}
	return Price(d.IntPart()), nil
}

// FormatAmount renders a tick amount of any size, such as a notional
// total, as a decimal string with exactly scale decimal places.
func FormatAmount(ticks decimal.Decimal, scale int32) string {
	return ticks.Shift(-scale).StringFixed(scale)
}

// FormatPrice renders ticks back as a decimal string with exactly scale
// decimal places.
func FormatPrice(p Price, scale int32) string {
	return decimal.New(int64(p), -scale).StringFixed(scale)
}
