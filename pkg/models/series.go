// Package models defines the core data structures used throughout marketlens.
package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Missing returns the sentinel for an absent numeric value.
//
// Every numeric field in this package uses NaN for "not available"; zero is
// always a real value and never stands in for a gap.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Bar represents a single trading bar of price data.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the price history for a single ticker, sorted ascending
// by date with unique dates.
type PriceSeries struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// NewPriceSeries builds a sorted series from bars in any order. Bars sharing
// a date collapse to the one appearing last in the input.
func NewPriceSeries(ticker string, bars []Bar) *PriceSeries {
	ps := &PriceSeries{Ticker: ticker}
	for _, b := range bars {
		ps.Append(b)
	}
	return ps
}

// Len returns the number of bars.
func (ps *PriceSeries) Len() int { return len(ps.Bars) }

// Append inserts a bar keeping the series sorted. A bar on an existing date
// replaces the earlier one.
func (ps *PriceSeries) Append(b Bar) {
	i := sort.Search(len(ps.Bars), func(i int) bool {
		return !ps.Bars[i].Date.Before(b.Date)
	})
	if i < len(ps.Bars) && ps.Bars[i].Date.Equal(b.Date) {
		ps.Bars[i] = b
		return
	}
	ps.Bars = append(ps.Bars, Bar{})
	copy(ps.Bars[i+1:], ps.Bars[i:])
	ps.Bars[i] = b
}

// Dates returns the date axis of the series.
func (ps *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(ps.Bars))
	for i, b := range ps.Bars {
		out[i] = b.Date
	}
	return out
}

// Closes returns the close column of the series.
func (ps *PriceSeries) Closes() []float64 {
	out := make([]float64, len(ps.Bars))
	for i, b := range ps.Bars {
		out[i] = b.Close
	}
	return out
}

// CloseAsOf returns the close at the greatest date less than or equal to t.
// The second result is false when t precedes the first bar; the series never
// answers with a price from after t.
func (ps *PriceSeries) CloseAsOf(t time.Time) (float64, bool) {
	i := sort.Search(len(ps.Bars), func(i int) bool {
		return ps.Bars[i].Date.After(t)
	})
	if i == 0 {
		return Missing(), false
	}
	return ps.Bars[i-1].Close, true
}

// Window returns the sub-series with from <= date <= to. The bars are shared
// with the receiver, not copied.
func (ps *PriceSeries) Window(from, to time.Time) *PriceSeries {
	lo := sort.Search(len(ps.Bars), func(i int) bool {
		return !ps.Bars[i].Date.Before(from)
	})
	hi := sort.Search(len(ps.Bars), func(i int) bool {
		return ps.Bars[i].Date.After(to)
	})
	return &PriceSeries{Ticker: ps.Ticker, Bars: ps.Bars[lo:hi]}
}

// Validate checks the structural invariants of the series.
func (ps *PriceSeries) Validate() error {
	if ps.Ticker == "" {
		return &ErrInvalidRequest{Field: "ticker", Reason: "must not be empty"}
	}
	for i := 1; i < len(ps.Bars); i++ {
		if !ps.Bars[i-1].Date.Before(ps.Bars[i].Date) {
			return fmt.Errorf("bars out of order at index %d (%s then %s)",
				i, ps.Bars[i-1].Date.Format("2006-01-02"), ps.Bars[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Interval represents the bar spacing of a price history request.
type Interval string

const (
	Interval1D  Interval = "1d"
	Interval5D  Interval = "5d"
	Interval1Mo Interval = "1mo"
	Interval3Mo Interval = "3mo"
	Interval6Mo Interval = "6mo"
	Interval1Y  Interval = "1y"
	Interval2Y  Interval = "2y"
	Interval5Y  Interval = "5y"
	Interval10Y Interval = "10y"
	IntervalYTD Interval = "ytd"
	IntervalMax Interval = "max"
)

// Intervals lists every accepted interval in display order.
func Intervals() []Interval {
	return []Interval{
		Interval1D, Interval5D, Interval1Mo, Interval3Mo, Interval6Mo,
		Interval1Y, Interval2Y, Interval5Y, Interval10Y, IntervalYTD, IntervalMax,
	}
}

// Valid reports whether i is one of the accepted intervals.
func (i Interval) Valid() bool {
	for _, v := range Intervals() {
		if i == v {
			return true
		}
	}
	return false
}

// ParseInterval validates s and returns it as an Interval.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if !iv.Valid() {
		return "", &ErrInvalidRequest{Field: "interval", Reason: fmt.Sprintf("%q is not one of %v", s, Intervals())}
	}
	return iv, nil
}
