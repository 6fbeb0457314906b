// Package core provides amount parsing and formatting utilities.
//
// Amounts are plain float64 currency units. Precision beyond two decimals is
// not guaranteed; values are rounded to paise when parsed.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "₹"

// ParseAmount converts a user-typed decimal string into a non-negative amount.
//
// The dot is the only decimal separator. Commas group thousands, in either
// western (1,234,567) or lakh (12,34,567) style, and a leading rupee sign is
// allowed, so every FormatAmount output parses back. The value is rounded
// half-up to two decimals. Signs, exponents, misplaced commas and anything
// else that is not a plain decimal are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("150")      -> 150, nil
//	ParseAmount("1,250")    -> 1250, nil
//	ParseAmount("₹1,250.5") -> 1250.5, nil
//	ParseAmount("12.345")   -> 12.35, nil
//	ParseAmount("12,34")    -> 0, ErrInvalidAmount
//	ParseAmount("-5")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, CurrencySymbol))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(intPart, ",") {
		if !validGrouping(intPart) {
			return 0, ErrInvalidAmount
		}
		intPart = strings.ReplaceAll(intPart, ",", "")
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<53 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	// Two fractional digits, half-up on the third.
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return float64(iv*100+frac) / 100, nil
}

// validGrouping reports whether the commas in s sit on thousands
// boundaries: a lead group of one to three digits, three digits after the
// last comma, and two or three digits between.
func validGrouping(s string) bool {
	groups := strings.Split(s, ",")
	last := len(groups) - 1
	for i, g := range groups {
		switch {
		case i == 0 && (len(g) < 1 || len(g) > 3):
			return false
		case i == last && len(g) != 3:
			return false
		case i > 0 && i < last && len(g) != 2 && len(g) != 3:
			return false
		}
	}
	return true
}

// ParseLimit parses a budget ceiling. An empty string means "unconfigured".
func ParseLimit(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return ParseAmount(s)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders an amount for display, e.g. "₹1,250.5" or "-₹20".
func FormatAmount(v float64) string {
	v = Round2(v)
	if v < 0 {
		return "-" + CurrencySymbol + humanize.CommafWithDigits(-v, 2)
	}
	return CurrencySymbol + humanize.CommafWithDigits(v, 2)
}
