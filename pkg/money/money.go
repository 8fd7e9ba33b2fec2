// Package money provides integer minor-unit (cents) arithmetic for the
// financial paths. Percentage rates are carried as basis points so no
// floating point ever reaches a persisted amount.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BpsDenominator is the number of basis points in 100%.
const BpsDenominator = 10000

// ApplyRateBps returns floor(amount * bps / 10000). Amount and bps must be
// non-negative; integer division floors for non-negative operands.
func ApplyRateBps(amount, bps int64) int64 {
	return amount * bps / BpsDenominator
}

// ClampDiscount caps discount at subtotal. The second return reports whether
// the discount had to be clamped.
func ClampDiscount(subtotal, discount int64) (int64, bool) {
	if discount > subtotal {
		return subtotal, true
	}
	return discount, false
}

// ValidRateBps reports whether bps is inside [0%, 100%].
func ValidRateBps(bps int64) bool {
	return bps >= 0 && bps <= BpsDenominator
}

// PercentToBps converts a decimal percent (e.g. 10.5) to basis points,
// rounding half away from zero. Used only at the API edge; everything below
// it is integer arithmetic.
func PercentToBps(percent float64) int64 {
	return int64(math.Round(percent * 100))
}

// BpsToPercent converts basis points back to a decimal percent for responses.
func BpsToPercent(bps int64) float64 {
	return float64(bps) / 100
}

// ParsePercent parses a decimal percent string ("10", "10.5") into basis
// points without going through float arithmetic.
func ParsePercent(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty percent")
	}

	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	wholeVal, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percent %q", raw)
	}
	if wholeVal < 0 {
		return 0, fmt.Errorf("invalid percent %q", raw)
	}

	fracVal := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		fracVal, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percent %q", raw)
		}
	}

	return wholeVal*100 + fracVal, nil
}

// FormatMinor renders a minor-unit amount as a decimal string ("1500" ->
// "15.00"), for logs and human-readable output only.
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
