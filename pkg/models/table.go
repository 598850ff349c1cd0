package models

import (
	"fmt"
	"strings"
	"time"
)

// Table is an ordered columnar frame: a strictly ascending date axis with
// zero or more float64 columns aligned to it. Gaps are NaN, never zero.
type Table struct {
	dates []time.Time
	names []string
	cols  map[string][]float64
}

// NewTable creates a table over the given date axis. The dates must be
// strictly ascending; the slice is copied.
func NewTable(dates []time.Time) (*Table, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			return nil, fmt.Errorf("table dates out of order at index %d (%s then %s)",
				i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
	t := &Table{
		dates: append([]time.Time(nil), dates...),
		cols:  make(map[string][]float64),
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns the date axis. Callers must not modify the result.
func (t *Table) Dates() []time.Time { return t.dates }

// Names returns the column names in insertion order.
func (t *Table) Names() []string { return t.names }

// AddColumn attaches a column aligned to the date axis, replacing any
// existing column of the same name. The values slice is not copied.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.dates) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.dates))
	}
	if _, exists := t.cols[name]; !exists {
		t.names = append(t.names, name)
	}
	t.cols[name] = values
	return nil
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) ([]float64, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// Value returns the cell at (row i, column name), or the missing sentinel
// when the column does not exist.
func (t *Table) Value(name string, i int) float64 {
	c, ok := t.cols[name]
	if !ok {
		return Missing()
	}
	return c[i]
}

// Row returns the date and cell values of row i keyed by column name.
func (t *Table) Row(i int) (time.Time, map[string]float64) {
	row := make(map[string]float64, len(t.names))
	for _, name := range t.names {
		row[name] = t.cols[name][i]
	}
	return t.dates[i], row
}

// String renders the table for debugging, one row per date.
func (t *Table) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s", "date")
	for _, name := range t.names {
		fmt.Fprintf(&b, "  %14s", name)
	}
	b.WriteByte('\n')
	for i, d := range t.dates {
		fmt.Fprintf(&b, "%-12s", d.Format("2006-01-02"))
		for _, name := range t.names {
			v := t.cols[name][i]
			if IsMissing(v) {
				fmt.Fprintf(&b, "  %14s", "-")
			} else {
				fmt.Fprintf(&b, "  %14.4f", v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
