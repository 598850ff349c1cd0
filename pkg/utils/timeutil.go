package utils

import (
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses a date string in "2006-01-02" format as UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseDateLoose parses a date accepting "2006-01-02" first, then RFC3339.
func ParseDateLoose(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse date %q: want YYYY-MM-DD or RFC3339", s)
}

// FormatDate formats a time.Time to "2006-01-02" in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// DaysBetween returns the calendar days from a to b (negative when b is
// before a).
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// YearsBetween returns the year fraction from a to b using the 365.25-day
// convention.
func YearsBetween(a, b time.Time) float64 {
	return DaysBetween(a, b) / 365.25
}

// MedianSpacingDays returns the median gap in days between consecutive
// dates. The input need not be sorted. Fewer than two dates yields 0.
func MedianSpacingDays(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, DaysBetween(sorted[i-1], sorted[i]))
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}
