// Package money converts user-entered decimal amounts to integer cents.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalid is returned for text that is not a finite decimal with at most
// two fractional digits.
var ErrInvalid = errors.New("invalid amount")

// maxCents keeps amounts inside float64's exact integer range.
const maxCents = 1 << 53

// Parse converts "12", "12.5" or "12.50" to 1250. Negative values parse;
// range checks belong to the caller.
func Parse(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrInvalid
	}

	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 2 {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalid)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalid
	}
	// Reject exponent forms like 1e-3 that slip past the decimal check
	if strings.ContainsAny(s, "eExXpP") {
		return 0, ErrInvalid
	}

	cents := math.Round(f * 100)
	if math.Abs(cents) >= maxCents {
		return 0, fmt.Errorf("%w: out of range", ErrInvalid)
	}
	return int64(cents), nil
}

// Format renders cents with two decimals.
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
