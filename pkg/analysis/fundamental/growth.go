package fundamental

import (
	"math"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// GrowthPeriod selects the comparison basis for growth computations.
type GrowthPeriod string

const (
	YoY GrowthPeriod = "YoY"
	QoQ GrowthPeriod = "QoQ"
)

// Frequency classifies the spacing of a statement period axis.
type Frequency string

const (
	FreqAnnual    Frequency = "annual"
	FreqQuarterly Frequency = "quarterly"
)

// annualSpacingDays separates annual from quarterly axes: quarterly rows sit
// ~90 days apart, annual rows ~365, so anything at or above this threshold
// reads as annual.
const annualSpacingDays = 270

// InferFrequency classifies a period axis by its median spacing. Fewer than
// two periods defaults to annual.
func InferFrequency(periods []time.Time) Frequency {
	if len(periods) < 2 {
		return FreqAnnual
	}
	if utils.MedianSpacingDays(periods) >= annualSpacingDays {
		return FreqAnnual
	}
	return FreqQuarterly
}

// DefaultGrowthFields returns the line items growth is computed for when the
// caller does not name any.
func DefaultGrowthFields() []string {
	return []string{
		models.ItemTotalRevenue,
		models.ItemEBITDA,
		models.ItemNetIncome,
		models.ItemDilutedEPS,
	}
}

// Growth computes period-over-period percentage growth for the requested
// line items. QoQ compares against the immediately preceding row; YoY
// compares against 4 rows back on quarterly data and 1 row back on annual
// data, with the frequency inferred from the period spacing.
//
// Rows without enough history, and rows whose base value is zero or
// missing, carry missing growth — never 0% and never an error. An unknown
// field yields missing records for that field. Only an empty table or an
// unrecognized period is an error.
func Growth(st *models.StatementTable, period GrowthPeriod, fields ...string) ([]models.GrowthRecord, error) {
	if st == nil || st.Len() == 0 {
		return nil, &models.ErrEmptyInput{What: "statement table"}
	}
	if period != YoY && period != QoQ {
		return nil, &models.ErrInvalidRequest{Field: "period", Reason: `must be "YoY" or "QoQ"`}
	}
	if len(fields) == 0 {
		fields = DefaultGrowthFields()
	}

	k := 1
	if period == YoY && InferFrequency(st.Periods) == FreqQuarterly {
		k = 4
	}

	records := make([]models.GrowthRecord, 0, len(fields)*st.Len())
	for _, field := range fields {
		col, ok := st.Item(field)
		for i, p := range st.Periods {
			g := models.Missing()
			if ok && i >= k {
				g = growthPct(col[i-k], col[i])
			}
			records = append(records, models.GrowthRecord{Period: p, Field: field, GrowthPct: g})
		}
	}
	return records, nil
}

// growthPct is (cur − prior) / |prior| × 100. The absolute-value denominator
// keeps the sign of the raw difference, so a loss swinging to a profit reads
// positive. A zero or missing base yields missing.
func growthPct(prior, cur float64) float64 {
	if models.IsMissing(prior) || models.IsMissing(cur) || prior == 0 {
		return models.Missing()
	}
	return (cur - prior) / math.Abs(prior) * 100
}

// CAGR returns the compound annual growth rate in percent between two
// values, or missing when either value is non-positive or years is not
// positive.
func CAGR(start, end, years float64) float64 {
	if models.IsMissing(start) || models.IsMissing(end) {
		return models.Missing()
	}
	if start <= 0 || end <= 0 || years <= 0 {
		return models.Missing()
	}
	return (math.Pow(end/start, 1/years) - 1) * 100
}

// GrowthReturnPoint pairs a period's line-item growth with the stock return
// over the same span.
type GrowthReturnPoint struct {
	Period    time.Time `json:"period"`
	GrowthPct float64   `json:"growth_pct"`
	ReturnPct float64   `json:"return_pct"`
}

// GrowthVsReturns joins year-over-year growth of one line item with the
// trailing stock return between the as-of closes of the compared periods.
// Points missing either side are dropped.
func GrowthVsReturns(st *models.StatementTable, prices *models.PriceSeries, field string) ([]GrowthReturnPoint, error) {
	if st == nil || st.Len() == 0 {
		return nil, &models.ErrEmptyInput{What: "statement table"}
	}
	if prices == nil || prices.Len() == 0 {
		return nil, &models.ErrEmptyInput{What: "price series"}
	}

	col, ok := st.Item(field)
	if !ok {
		return nil, &models.ErrInvalidRequest{Field: "field", Reason: "not a canonical line item: " + field}
	}

	k := 1
	if InferFrequency(st.Periods) == FreqQuarterly {
		k = 4
	}

	var points []GrowthReturnPoint
	for i := k; i < len(st.Periods); i++ {
		growth := growthPct(col[i-k], col[i])

		ret := models.Missing()
		if prior, ok := prices.CloseAsOf(st.Periods[i-k]); ok {
			if cur, ok := prices.CloseAsOf(st.Periods[i]); ok {
				ret = growthPct(prior, cur)
			}
		}

		if models.IsMissing(growth) || models.IsMissing(ret) {
			continue
		}
		points = append(points, GrowthReturnPoint{Period: st.Periods[i], GrowthPct: growth, ReturnPct: ret})
	}
	return points, nil
}
