package financie

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var nonDigit = regexp.MustCompile(`[^0-9]`)
var nonNumber = regexp.MustCompile(`[^0-9.]`)

// parseCount parses a count rendered for humans, e.g. "12,345人".
func parseCount(s string) (int64, error) {
	digits := nonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.ParseInt(digits, 10, 64)
}

// parsePrice joins the integer-part and fractional-part text nodes the
// market page renders as separate DOM fragments.
func parsePrice(intPart, fracPart string) (float64, error) {
	s := nonNumber.ReplaceAllString(intPart, "")
	if s == "" {
		return 0, fmt.Errorf("no digits in integer part %q", intPart)
	}
	frac := nonNumber.ReplaceAllString(fracPart, "")
	if frac != "" {
		if !strings.Contains(frac, ".") && !strings.Contains(s, ".") {
			s += "."
		}
		s += frac
	}
	return strconv.ParseFloat(s, 64)
}

// the bancor API encodes price and stock as base-10 fixed point
// integers scaled by 10^18
var fixedPointScale = decimal.New(1, 18)

// decodeFixedPrice converts a raw fixed-point price to yen, rounded
// half-up to 4 decimal places.
func decodeFixedPrice(raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("fixed-point price %q: %w", raw, err)
	}
	return d.DivRound(fixedPointScale, 4).InexactFloat64(), nil
}

// decodeFixedStock converts a raw fixed-point stock amount to a whole
// token count, truncating any fractional remainder.
func decodeFixedStock(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("fixed-point stock %q: %w", raw, err)
	}
	// 18 places keeps the division exact, so the floor is too
	return d.DivRound(fixedPointScale, 18).Floor().IntPart(), nil
}
