package utils

import "strings"

// NormalizeTicker normalizes a user-input ticker: trims whitespace, uppercases,
// and strips a leading "$" (common in chat and screener exports).
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	return strings.TrimPrefix(ticker, "$")
}

// StripExchangeSuffix removes a Yahoo-style exchange suffix (".NS", ".BO",
// ".L", ...) from a ticker, leaving plain symbols like "BRK-B" untouched.
func StripExchangeSuffix(ticker string) string {
	if i := strings.LastIndex(ticker, "."); i > 0 {
		return ticker[:i]
	}
	return ticker
}

// ValidTicker reports whether a normalized ticker looks usable: non-empty
// and built from letters, digits, and the separators Yahoo symbols use.
func ValidTicker(ticker string) bool {
	if ticker == "" {
		return false
	}
	for _, r := range ticker {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '^' || r == '=':
		default:
			return false
		}
	}
	return true
}
