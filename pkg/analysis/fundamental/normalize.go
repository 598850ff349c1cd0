// Package fundamental normalizes financial statements and derives growth and
// valuation metrics from them.
package fundamental

import (
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// itemAliases maps provider line-item labels to canonical keys. Lookup
// happens after labelKey folding, so "Total Revenue", "totalRevenue" and
// "TOTAL_REVENUE" all land on the same entry.
var itemAliases = map[string]string{
	"total revenue":                      models.ItemTotalRevenue,
	"revenue":                            models.ItemTotalRevenue,
	"net sales":                          models.ItemTotalRevenue,
	"ebitda":                             models.ItemEBITDA,
	"normalized ebitda":                  models.ItemEBITDA,
	"net income":                         models.ItemNetIncome,
	"net income common stockholders":     models.ItemNetIncome,
	"net profit":                         models.ItemNetIncome,
	"diluted eps":                        models.ItemDilutedEPS,
	"eps diluted":                        models.ItemDilutedEPS,
	"operating expense":                  models.ItemOperatingExpense,
	"operating expenses":                 models.ItemOperatingExpense,
	"total operating expenses":           models.ItemOperatingExpense,
	"research and development":           models.ItemResearchDevelopment,
	"research development":               models.ItemResearchDevelopment,
	"selling general and administration": models.ItemSellingGeneralAdmin,
	"selling general and administrative": models.ItemSellingGeneralAdmin,
	"selling general admin":              models.ItemSellingGeneralAdmin,
	"cost of revenue":                    models.ItemCostOfRevenue,
	"cost of goods sold":                 models.ItemCostOfRevenue,
	"total assets":                       models.ItemTotalAssets,
	"total liabilities":                  models.ItemTotalLiabilities,
	"total liabilities net minority interest": models.ItemTotalLiabilities,
	"stockholders equity":                models.ItemStockholdersEquity,
	"total stockholder equity":           models.ItemStockholdersEquity,
	"total equity":                       models.ItemStockholdersEquity,
	"shareholder equity":                 models.ItemStockholdersEquity,
	"total debt":                         models.ItemTotalDebt,
	"cash and equivalents":               models.ItemCashAndEquivalents,
	"cash and cash equivalents":          models.ItemCashAndEquivalents,
	"cash cash equivalents and short term investments": models.ItemCashAndEquivalents,
	"diluted shares":                     models.ItemDilutedShares,
	"diluted average shares":             models.ItemDilutedShares,
	"shares outstanding":                 models.ItemDilutedShares,
}

// Normalize filters raw statement rows to one ticker and reshapes them into
// a canonical StatementTable: periods sorted ascending, provider labels
// mapped to canonical line items, and every value coerced to float64 with
// NaN (never zero) standing in for anything unparseable.
//
// A period appearing more than once keeps the row seen last; the overwrite
// is logged. Zero rows for the ticker is a structural error, as is a period
// date that cannot be parsed.
func Normalize(raw *models.RawStatementTable, ticker string) (*models.StatementTable, error) {
	if raw == nil || len(raw.Rows) == 0 {
		return nil, &models.ErrEmptyInput{What: "statement rows"}
	}
	symbol := utils.NormalizeTicker(ticker)
	if !utils.ValidTicker(symbol) {
		return nil, &models.ErrInvalidRequest{Field: "ticker", Reason: "must be a non-empty symbol"}
	}

	entries := make(map[int64]map[string]float64)
	var periods []int64
	matched := 0

	for _, row := range raw.Rows {
		if utils.NormalizeTicker(row.Ticker) != symbol {
			continue
		}
		matched++

		end, err := utils.ParseDateLoose(row.PeriodEnd)
		if err != nil {
			return nil, &models.ErrBadPeriod{Ticker: symbol, Raw: row.PeriodEnd}
		}
		key := end.Unix()

		if _, dup := entries[key]; dup {
			log.Printf("fundamental: duplicate period %s for %s, keeping the later row", utils.FormatDate(end), symbol)
		} else {
			periods = append(periods, key)
		}

		items := make(map[string]float64, len(row.Items))
		for label, val := range row.Items {
			canon, ok := canonicalItem(label)
			if !ok {
				continue
			}
			items[canon] = ParseValue(val)
		}
		entries[key] = items
	}

	if matched == 0 {
		return nil, &models.ErrUnknownTicker{Ticker: symbol}
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })

	st := &models.StatementTable{
		Ticker:  symbol,
		Periods: unixToTimes(periods),
		Items:   make(map[string][]float64, len(models.CanonicalItems())),
	}
	for _, item := range models.CanonicalItems() {
		col := make([]float64, len(periods))
		for i, p := range periods {
			v, ok := entries[p][item]
			if !ok {
				v = models.Missing()
			}
			col[i] = v
		}
		st.Items[item] = col
	}
	return st, nil
}

// canonicalItem resolves a provider label to a canonical line-item key.
func canonicalItem(label string) (string, bool) {
	canon, ok := itemAliases[labelKey(label)]
	return canon, ok
}

// labelKey folds a label for alias lookup: lowercase, separators to spaces,
// camelCase split, runs of spaces collapsed.
func labelKey(label string) string {
	var b strings.Builder
	prevLower := false
	prevSpace := true
	for _, r := range label {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte(' ')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower = false
			prevSpace = false
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z'
			prevSpace = false
		default:
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevLower = false
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ParseValue coerces a raw statement cell to float64. Anything that does
// not read as a number becomes NaN — never zero, so gaps stay
// distinguishable from true zeros. Handles thousands separators, currency
// prefixes, parenthesized negatives, percent suffixes, and compact
// magnitude suffixes (K/M/B/T).
func ParseValue(s string) float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "--", "n/a", "na", "nan", "null", "none":
		return models.Missing()
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(s, "%")
	for _, cur := range []string{"$", "₹", "€", "£"} {
		s = strings.TrimPrefix(s, cur)
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	mult := 1.0
	if len(s) > 0 {
		switch s[len(s)-1] {
		case 'K', 'k':
			mult, s = 1e3, s[:len(s)-1]
		case 'M', 'm':
			mult, s = 1e6, s[:len(s)-1]
		case 'B', 'b':
			mult, s = 1e9, s[:len(s)-1]
		case 'T', 't':
			mult, s = 1e12, s[:len(s)-1]
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return models.Missing()
	}
	if neg {
		v = -v
	}
	return v * mult
}

// --- helpers ---

func unixToTimes(xs []int64) []time.Time {
	out := make([]time.Time, len(xs))
	for i, x := range xs {
		out[i] = time.Unix(x, 0).UTC()
	}
	return out
}
