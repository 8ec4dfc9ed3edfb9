// Package currency infers the settlement currency of an endpoint from its URL.
package currency

import (
	"regexp"
	"strings"
)

// Default is used when no pattern matches.
const Default = "USD"

// Tried in order; the first capture wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/dbXRates/([A-Z]{3})$`),
	regexp.MustCompile(`(?i)[?&]base=([A-Z]{3})`),
	regexp.MustCompile(`(?i)[?&]from=([A-Z]{3})`),
}

// Resolve returns the upper-cased three letter code embedded in url, or Default.
func Resolve(url string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return Default
}

var symbols = map[string]string{
	"USD": "USD $",
	"CAD": "CAD $",
	"EUR": "EUR €",
	"GBP": "GBP £",
	"AUD": "AUD $",
	"JPY": "JPY ¥",
	"CHF": "CHF Fr",
	"INR": "INR ₹",
	"CNY": "CNY ¥",
}

// Symbol returns the display prefix for a currency code. Unlisted codes
// fall back to "<CODE> $".
func Symbol(code string) string {
	code = strings.ToUpper(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " $"
}
