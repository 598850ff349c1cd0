package fundamental

import (
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Ratio names emitted by Ratios, in output order.
const (
	RatioPE           = "pe"
	RatioPB           = "pb"
	RatioEVEBITDA     = "ev_ebitda"
	RatioEBITDAMargin = "ebitda_margin"
	RatioROE          = "roe"
)

// RatioNames lists every ratio Ratios emits, in output order.
func RatioNames() []string {
	return []string{RatioPE, RatioPB, RatioEVEBITDA, RatioEBITDAMargin, RatioROE}
}

// Ratios computes per-period valuation and profitability ratios for a
// normalized statement table.
//
// The close price for each period comes from an as-of join: the latest
// market date at or before the period end, never a later one. Periods that
// precede the first market date get missing price-dependent ratios. A zero
// or missing denominator yields a missing ratio — never infinity and never
// an error. A nil or empty price series degrades the price-dependent ratios
// to missing rather than failing.
func Ratios(st *models.StatementTable, prices *models.PriceSeries) ([]models.RatioRecord, error) {
	if st == nil || st.Len() == 0 {
		return nil, &models.ErrEmptyInput{What: "statement table"}
	}

	records := make([]models.RatioRecord, 0, len(RatioNames())*st.Len())
	for i, period := range st.Periods {
		close := models.Missing()
		if prices != nil {
			if c, ok := prices.CloseAsOf(period); ok {
				close = c
			}
		}

		eps := st.Value(models.ItemDilutedEPS, i)
		equity := st.Value(models.ItemStockholdersEquity, i)
		shares := st.Value(models.ItemDilutedShares, i)
		debt := st.Value(models.ItemTotalDebt, i)
		cash := st.Value(models.ItemCashAndEquivalents, i)
		ebitda := st.Value(models.ItemEBITDA, i)
		revenue := st.Value(models.ItemTotalRevenue, i)
		netIncome := st.Value(models.ItemNetIncome, i)

		pe := safeDiv(close, eps)
		pb := safeDiv(close, safeDiv(equity, shares))
		evEBITDA := safeDiv(enterpriseValue(close, shares, debt, cash), ebitda)
		ebitdaMargin := safeDiv(ebitda, revenue)
		roe := safeDiv(netIncome, equity)

		for _, r := range []struct {
			name  string
			value float64
		}{
			{RatioPE, pe},
			{RatioPB, pb},
			{RatioEVEBITDA, evEBITDA},
			{RatioEBITDAMargin, ebitdaMargin},
			{RatioROE, roe},
		} {
			records = append(records, models.RatioRecord{Period: period, Name: r.name, Value: r.value})
		}
	}
	return records, nil
}

// enterpriseValue is market cap plus net debt. Debt and cash default to 0
// when the statement does not carry them; a missing close or share count
// makes the whole value missing.
func enterpriseValue(close, shares, debt, cash float64) float64 {
	if models.IsMissing(close) || models.IsMissing(shares) || shares <= 0 {
		return models.Missing()
	}
	if models.IsMissing(debt) {
		debt = 0
	}
	if models.IsMissing(cash) {
		cash = 0
	}
	return close*shares + debt - cash
}

// safeDiv divides with the missing-value policy: zero or missing
// denominators, missing numerators, and non-finite results all come back
// missing.
func safeDiv(num, den float64) float64 {
	if models.IsMissing(num) || models.IsMissing(den) || den == 0 {
		return models.Missing()
	}
	v := num / den
	if math.IsInf(v, 0) {
		return models.Missing()
	}
	return v
}
