// Package utils provides common utility functions for marketlens.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatCompact formats a number in compact notation.
// e.g., 1927345 → "1.93M", 2500000000 → "2.5B"
func FormatCompact(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	negative := v < 0
	v = math.Abs(v)

	prefix := ""
	if negative {
		prefix = "-"
	}

	switch {
	case v >= 1e12:
		return fmt.Sprintf("%s%sT", prefix, formatWithDecimals(v/1e12))
	case v >= 1e9:
		return fmt.Sprintf("%s%sB", prefix, formatWithDecimals(v/1e9))
	case v >= 1e6:
		return fmt.Sprintf("%s%sM", prefix, formatWithDecimals(v/1e6))
	case v >= 1e3:
		return fmt.Sprintf("%s%sK", prefix, formatWithDecimals(v/1e3))
	default:
		return fmt.Sprintf("%s%.2f", prefix, v)
	}
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if math.IsNaN(pct) {
		return "-"
	}
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func formatWithDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
