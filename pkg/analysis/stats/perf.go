package stats

import (
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// StrategyReturns applies a position series to a return series with
// next-bar execution: the position held after bar t-1 earns the return of
// bar t. Rows with a missing side stay missing.
func StrategyReturns(positions, returns []float64) ([]float64, error) {
	if len(positions) != len(returns) {
		return nil, &models.ErrInvalidRequest{Field: "positions", Reason: "length must match returns"}
	}
	out := make([]float64, len(returns))
	if len(out) == 0 {
		return out, nil
	}
	out[0] = models.Missing()
	for i := 1; i < len(returns); i++ {
		p, r := positions[i-1], returns[i]
		if models.IsMissing(p) || models.IsMissing(r) {
			out[i] = models.Missing()
			continue
		}
		out[i] = p * r
	}
	return out, nil
}

// Performance summarizes a periodic return series.
type Performance struct {
	TotalReturn      float64 `json:"total_return"` // cumulative, fractional
	AnnualizedReturn float64 `json:"annualized_return"`
	AnnualizedVol    float64 `json:"annualized_vol"`
	Sharpe           float64 `json:"sharpe"`       // zero risk-free rate
	MaxDrawdown      float64 `json:"max_drawdown"` // fractional, >= 0
	WinRate          float64 `json:"win_rate"`     // fraction of positive periods
	Periods          int     `json:"periods"`
}

// Evaluate computes performance statistics over a return series, skipping
// missing entries. periodsPerYear annualizes the result (252 for daily
// bars).
func Evaluate(returns []float64, periodsPerYear float64) (Performance, error) {
	if periodsPerYear <= 0 || models.IsMissing(periodsPerYear) {
		return Performance{}, &models.ErrInvalidParameter{Param: "periods_per_year", Value: periodsPerYear, Reason: "must be positive"}
	}
	clean := dropMissing(returns)
	if len(clean) == 0 {
		return Performance{}, &models.ErrEmptyInput{What: "return series"}
	}

	perf := Performance{Periods: len(clean)}

	equity, peak := 1.0, 1.0
	maxDD := 0.0
	wins := 0
	for _, r := range clean {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
		if r > 0 {
			wins++
		}
	}
	perf.TotalReturn = equity - 1
	perf.MaxDrawdown = maxDD
	perf.WinRate = float64(wins) / float64(len(clean))

	years := float64(len(clean)) / periodsPerYear
	if equity > 0 {
		perf.AnnualizedReturn = math.Pow(equity, 1/years) - 1
	} else {
		perf.AnnualizedReturn = models.Missing()
	}

	sd := sampleStdDev(clean)
	if models.IsMissing(sd) || sd == 0 {
		perf.AnnualizedVol = models.Missing()
		perf.Sharpe = models.Missing()
	} else {
		perf.AnnualizedVol = sd * math.Sqrt(periodsPerYear)
		perf.Sharpe = mean(clean) / sd * math.Sqrt(periodsPerYear)
	}
	return perf, nil
}
