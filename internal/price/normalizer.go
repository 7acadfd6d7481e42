package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SeparatorPolicy controls how an ambiguous price string with both "," and
// "." is read. Storefronts disagree on which one is the decimal separator.
type SeparatorPolicy int

const (
	// CommaDecimal treats the comma as the decimal separator and the period
	// as a thousands separator ("1.999,99" -> 1999.99). A lone period is
	// still read as a decimal point ("$19.99" -> 19.99).
	CommaDecimal SeparatorPolicy = iota

	// LastSeparatorWins takes whichever separator occurs last as the decimal
	// separator and strips the other one.
	LastSeparatorWins
)

// freeWords are price texts that mean "costs nothing" rather than a number.
// "Н/Д" is what the GOG page shows for listings without a price.
var freeWords = map[string]struct{}{
	"free":       {},
	"бесплатно":  {},
	"н/д":        {},
}

// Normalize parses a raw storefront price text into a decimal value.
// Malformed input never produces an error: a price that cannot be read is 0,
// so one broken listing cannot abort a page scrape.
func Normalize(raw string) decimal.Decimal {
	return NormalizeWith(raw, CommaDecimal)
}

func NormalizeWith(raw string, policy SeparatorPolicy) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}
	if _, ok := freeWords[strings.ToLower(s)]; ok {
		return decimal.Zero
	}

	cleaned := stripNonPrice(s)
	if cleaned == "" {
		return decimal.Zero
	}

	hasComma := strings.Contains(cleaned, ",")
	hasPeriod := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasPeriod:
		if policy == LastSeparatorWins &&
			strings.LastIndex(cleaned, ".") > strings.LastIndex(cleaned, ",") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// stripNonPrice drops everything that is not a digit, comma or period:
// currency symbols, regular and non-breaking spaces, stray letters.
func stripNonPrice(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
