// Package stats computes return series, distribution summaries, kernel
// density estimates and performance metrics for market data.
package stats

import (
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Column names produced by Returns.
const (
	ColReturns       = "returns"
	ColLogReturns    = "log_returns"
	ColVolatility    = "volatility"
	ColVolatilityLog = "volatility_log"
)

// Returns builds the per-bar return table for a price series: simple and
// log returns plus their rolling sample standard deviations over window.
// The first row and rows with unusable closes carry the missing sentinel.
func Returns(prices *models.PriceSeries, window int) (*models.Table, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, &models.ErrEmptyInput{What: "price series"}
	}
	if window < 2 {
		return nil, &models.ErrInvalidParameter{Param: "window", Value: float64(window), Reason: "must be at least 2"}
	}

	closes := prices.Closes()
	n := len(closes)
	rets := make([]float64, n)
	logs := make([]float64, n)
	rets[0], logs[0] = models.Missing(), models.Missing()
	for i := 1; i < n; i++ {
		prev, cur := closes[i-1], closes[i]
		if models.IsMissing(prev) || models.IsMissing(cur) || prev == 0 {
			rets[i], logs[i] = models.Missing(), models.Missing()
			continue
		}
		rets[i] = (cur - prev) / prev
		if prev > 0 && cur > 0 {
			logs[i] = math.Log(cur / prev)
		} else {
			logs[i] = models.Missing()
		}
	}

	table, err := models.NewTable(prices.Dates())
	if err != nil {
		return nil, err
	}
	for _, col := range []struct {
		name   string
		values []float64
	}{
		{ColReturns, rets},
		{ColLogReturns, logs},
		{ColVolatility, RollingStdDev(rets, window)},
		{ColVolatilityLog, RollingStdDev(logs, window)},
	} {
		if err := table.AddColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// RollingStdDev computes the trailing sample standard deviation over a
// fixed window. Positions before the window fills, or whose window contains
// a missing value, carry the missing sentinel.
func RollingStdDev(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = models.Missing()
	}
	if window < 2 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		slice := values[i-window+1 : i+1]
		if anyMissing(slice) {
			continue
		}
		out[i] = sampleStdDev(slice)
	}
	return out
}
