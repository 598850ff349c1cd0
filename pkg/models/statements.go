package models

import (
	"strings"
	"time"
)

// Canonical line-item keys for normalized financial statements.
const (
	ItemTotalRevenue        = "total_revenue"
	ItemEBITDA              = "ebitda"
	ItemNetIncome           = "net_income"
	ItemDilutedEPS          = "diluted_eps"
	ItemOperatingExpense    = "operating_expense"
	ItemResearchDevelopment = "research_development"
	ItemSellingGeneralAdmin = "selling_general_admin"
	ItemCostOfRevenue       = "cost_of_revenue"
	ItemTotalAssets         = "total_assets"
	ItemTotalLiabilities    = "total_liabilities"
	ItemStockholdersEquity  = "stockholders_equity"
	ItemTotalDebt           = "total_debt"
	ItemCashAndEquivalents  = "cash_and_equivalents"
	ItemDilutedShares       = "diluted_shares"
)

// CanonicalItems lists every canonical line-item key in a stable order.
func CanonicalItems() []string {
	return []string{
		ItemTotalRevenue,
		ItemEBITDA,
		ItemNetIncome,
		ItemDilutedEPS,
		ItemOperatingExpense,
		ItemResearchDevelopment,
		ItemSellingGeneralAdmin,
		ItemCostOfRevenue,
		ItemTotalAssets,
		ItemTotalLiabilities,
		ItemStockholdersEquity,
		ItemTotalDebt,
		ItemCashAndEquivalents,
		ItemDilutedShares,
	}
}

// RawStatementRow is one statement period for one ticker exactly as a
// provider delivered it: the period end and the line items as raw strings,
// uncoerced.
type RawStatementRow struct {
	PeriodEnd string            `json:"period_end"`
	Ticker    string            `json:"ticker"`
	Items     map[string]string `json:"items"`
}

// RawStatementTable is a pre-normalization statement set, possibly mixing
// several tickers.
type RawStatementTable struct {
	Rows []RawStatementRow `json:"rows"`
}

// Tickers returns the distinct tickers present, in first-seen order.
func (rt *RawStatementTable) Tickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rt.Rows {
		key := strings.ToUpper(strings.TrimSpace(r.Ticker))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// StatementTable holds normalized statements for a single ticker: period
// ends sorted ascending and unique, with each canonical item column aligned
// to them. Absent cells are NaN.
type StatementTable struct {
	Ticker  string               `json:"ticker"`
	Periods []time.Time          `json:"periods"`
	Items   map[string][]float64 `json:"items"`
}

// Len returns the number of periods.
func (st *StatementTable) Len() int { return len(st.Periods) }

// Item returns the column for a canonical key and whether it exists.
func (st *StatementTable) Item(key string) ([]float64, bool) {
	col, ok := st.Items[key]
	return col, ok
}

// Value returns the cell for a canonical key at period index i, or the
// missing sentinel when the column does not exist.
func (st *StatementTable) Value(key string, i int) float64 {
	col, ok := st.Items[key]
	if !ok {
		return Missing()
	}
	return col[i]
}

// GrowthRecord is one period-over-period growth observation for one field.
type GrowthRecord struct {
	Period    time.Time `json:"period"`
	Field     string    `json:"field"`
	GrowthPct float64   `json:"growth_pct"`
}

// RatioRecord is one valuation or profitability ratio at one period.
type RatioRecord struct {
	Period time.Time `json:"period"`
	Name   string    `json:"name"`
	Value  float64   `json:"value"`
}
