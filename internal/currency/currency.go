// Package currency maps display currency codes to symbols and names.
// Changing the display currency relabels amounts only: stored values
// are kept in a single implicit unit and are never converted. Convert
// exists for cosmetic preview figures and runs off a fixed rate table.
package currency

import (
	"strings"

	"budget/internal/core"
)

// DefaultSymbol is used for unrecognized currency codes.
const DefaultSymbol = "$"

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "C$",
	"AUD": "A$",
	"JPY": "¥",
	"PHP": "₱",
	"SGD": "S$",
	"CNY": "¥",
	"KRW": "₩",
	"INR": "₹",
}

var names = map[string]string{
	"USD": "US Dollar",
	"EUR": "Euro",
	"GBP": "British Pound",
	"CAD": "Canadian Dollar",
	"AUD": "Australian Dollar",
	"JPY": "Japanese Yen",
	"PHP": "Philippine Peso",
	"SGD": "Singapore Dollar",
	"CNY": "Chinese Yuan",
	"KRW": "South Korean Won",
	"INR": "Indian Rupee",
}

// rates are USD-relative and deliberately static; they feed cosmetic
// previews, never stored amounts.
var rates = map[string]float64{
	"USD": 1,
	"EUR": 0.9,
	"GBP": 0.8,
	"JPY": 140,
	"AUD": 1.4,
	"CAD": 1.3,
	"CHF": 0.92,
	"CNY": 6.9,
	"SEK": 10,
	"NZD": 1.5,
}

// Symbol returns the display symbol for a currency code, falling back
// to the generic symbol for unrecognized codes.
func Symbol(code string) string {
	if s, ok := symbols[normalize(code)]; ok {
		return s
	}
	return DefaultSymbol
}

// Name returns the full display name for a currency code, or the code
// itself when unrecognized.
func Name(code string) string {
	norm := normalize(code)
	if n, ok := names[norm]; ok {
		return n
	}
	return norm
}

// Known reports whether the code has a display name.
func Known(code string) bool {
	_, ok := names[normalize(code)]
	return ok
}

// Format renders an amount with its currency symbol, e.g. "€12.34".
func Format(m core.Money, code string) string {
	return Symbol(code) + m.String()
}

// Convert produces a display-only figure in another currency using the
// fixed rate table. Unknown codes convert at 1:1. Stored amounts are
// never passed through this.
func Convert(m core.Money, from, to string) core.Money {
	rateFrom, ok := rates[normalize(from)]
	if !ok {
		rateFrom = 1
	}
	rateTo, ok := rates[normalize(to)]
	if !ok {
		rateTo = 1
	}
	usd := float64(m.Cents) / rateFrom
	return core.Money{Cents: int64(usd*rateTo + 0.5)}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
