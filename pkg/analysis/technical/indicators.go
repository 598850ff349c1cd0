// Package technical computes indicator series and classic strategy position
// columns over price history.
//
// Every function returns slices aligned index-for-index with the input,
// padded with models.Missing() wherever the indicator has not warmed up yet
// or its window spans a missing value.
package technical

import (
	"fmt"
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Conventional settings for the indicator suite.
const (
	DefaultRSIPeriod      = 14
	DefaultFastPeriod     = 12
	DefaultSlowPeriod     = 26
	DefaultSignalPeriod   = 9
	DefaultBollingerSpan  = 20
	DefaultBollingerWidth = 2.0
)

// MACDSeries holds the MACD line, its signal line, and the histogram, each
// aligned with the input series.
type MACDSeries struct {
	Line      []float64 `json:"line"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// BollingerSeries holds the three Bollinger bands aligned with the input
// series.
type BollingerSeries struct {
	Upper  []float64 `json:"upper"`
	Middle []float64 `json:"middle"`
	Lower  []float64 `json:"lower"`
}

// SMA computes the simple moving average of values over period bars.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("period", period, len(values)); err != nil {
		return nil, err
	}
	out := missingSlice(len(values))
	sum, gaps := 0.0, 0
	for i, v := range values {
		if models.IsMissing(v) {
			gaps++
		} else {
			sum += v
		}
		if i >= period {
			if old := values[i-period]; models.IsMissing(old) {
				gaps--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && gaps == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA computes the exponential moving average of values over period bars.
// The smoother seeds with the simple average of the first full window and
// re-seeds the same way after a gap in the input.
func EMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("period", period, len(values)); err != nil {
		return nil, err
	}
	return emaSeries(values, period), nil
}

// RSI computes the relative strength index with Wilder smoothing. The first
// reading appears once period consecutive price changes are available.
func RSI(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("period", period, len(values)); err != nil {
		return nil, err
	}
	out := missingSlice(len(values))
	p := float64(period)
	var avgGain, avgLoss float64
	seeded := false
	clean := 0
	for i := 1; i < len(values); i++ {
		if models.IsMissing(values[i]) || models.IsMissing(values[i-1]) {
			seeded, clean = false, 0
			avgGain, avgLoss = 0, 0
			continue
		}
		change := values[i] - values[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if !seeded {
			avgGain += gain
			avgLoss += loss
			clean++
			if clean < period {
				continue
			}
			avgGain /= p
			avgLoss /= p
			seeded = true
		} else {
			avgGain = (avgGain*(p-1) + gain) / p
			avgLoss = (avgLoss*(p-1) + loss) / p
		}
		if avgLoss == 0 {
			out[i] = 100
		} else {
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out, nil
}

// MACD computes moving average convergence divergence over values: the
// fast-minus-slow EMA line, a signal EMA over that line, and their
// difference as the histogram.
func MACD(values []float64, fast, slow, signal int) (MACDSeries, error) {
	if err := checkPeriod("fast period", fast, len(values)); err != nil {
		return MACDSeries{}, err
	}
	if err := checkPeriod("slow period", slow, len(values)); err != nil {
		return MACDSeries{}, err
	}
	if err := checkPeriod("signal period", signal, len(values)); err != nil {
		return MACDSeries{}, err
	}
	if fast >= slow {
		return MACDSeries{}, &models.ErrInvalidParameter{
			Param: "fast period", Value: float64(fast), Reason: "must be below the slow period",
		}
	}
	n := len(values)
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	ms := MACDSeries{Line: missingSlice(n), Histogram: missingSlice(n)}
	for i := 0; i < n; i++ {
		if models.IsMissing(fastEMA[i]) || models.IsMissing(slowEMA[i]) {
			continue
		}
		ms.Line[i] = fastEMA[i] - slowEMA[i]
	}
	ms.Signal = emaSeries(ms.Line, signal)
	for i := 0; i < n; i++ {
		if models.IsMissing(ms.Line[i]) || models.IsMissing(ms.Signal[i]) {
			continue
		}
		ms.Histogram[i] = ms.Line[i] - ms.Signal[i]
	}
	return ms, nil
}

// Bollinger computes Bollinger bands over values: an SMA middle band with
// upper and lower bands width standard deviations away. The band distance
// uses the population deviation of each window.
func Bollinger(values []float64, period int, width float64) (BollingerSeries, error) {
	if err := checkPeriod("period", period, len(values)); err != nil {
		return BollingerSeries{}, err
	}
	if math.IsNaN(width) || width <= 0 {
		return BollingerSeries{}, &models.ErrInvalidParameter{
			Param: "width", Value: width, Reason: "must be positive",
		}
	}
	n := len(values)
	bs := BollingerSeries{Upper: missingSlice(n), Middle: missingSlice(n), Lower: missingSlice(n)}
	for i := period - 1; i < n; i++ {
		m, sd, ok := meanStdDev(values[i-period+1 : i+1])
		if !ok {
			continue
		}
		bs.Middle[i] = m
		bs.Upper[i] = m + width*sd
		bs.Lower[i] = m - width*sd
	}
	return bs, nil
}

// ATR computes Wilder's average true range over the bars. The first reading
// appears once period consecutive true ranges are available.
func ATR(bars []models.Bar, period int) ([]float64, error) {
	if err := checkPeriod("period", period, len(bars)); err != nil {
		return nil, err
	}
	out := missingSlice(len(bars))
	p := float64(period)
	var atr, seedSum float64
	seeded := false
	clean := 0
	for i := 1; i < len(bars); i++ {
		tr := trueRange(bars[i], bars[i-1].Close)
		if models.IsMissing(tr) {
			seeded, clean = false, 0
			seedSum = 0
			continue
		}
		if !seeded {
			seedSum += tr
			clean++
			if clean < period {
				continue
			}
			atr = seedSum / p
			seeded = true
		} else {
			atr = (atr*(p-1) + tr) / p
		}
		out[i] = atr
	}
	return out, nil
}

// --- helpers ---

func missingSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = models.Missing()
	}
	return out
}

// checkPeriod validates an indicator period against the available history.
func checkPeriod(param string, period, n int) error {
	if n == 0 {
		return &models.ErrEmptyInput{What: "price history"}
	}
	if period < 1 {
		return &models.ErrInvalidParameter{Param: param, Value: float64(period), Reason: "must be at least 1"}
	}
	if period >= n {
		return &models.ErrInvalidParameter{
			Param: param, Value: float64(period),
			Reason: fmt.Sprintf("must be below the %d available bars", n),
		}
	}
	return nil
}

// emaSeries computes an SMA-seeded exponential moving average. A missing
// input resets the smoother, which then re-seeds from the next full window.
func emaSeries(values []float64, period int) []float64 {
	out := missingSlice(len(values))
	k := 2 / (float64(period) + 1)
	ema := models.Missing()
	sum, gaps := 0.0, 0
	for i, v := range values {
		if models.IsMissing(v) {
			gaps++
			ema = models.Missing()
		} else {
			sum += v
			if !models.IsMissing(ema) {
				ema = v*k + ema*(1-k)
			}
		}
		if i >= period {
			if old := values[i-period]; models.IsMissing(old) {
				gaps--
			} else {
				sum -= old
			}
		}
		if models.IsMissing(ema) && i >= period-1 && gaps == 0 {
			ema = sum / float64(period)
		}
		out[i] = ema
	}
	return out
}

// meanStdDev returns the mean and population standard deviation of window,
// or ok=false when any value is missing.
func meanStdDev(window []float64) (m, sd float64, ok bool) {
	sum := 0.0
	for _, v := range window {
		if models.IsMissing(v) {
			return 0, 0, false
		}
		sum += v
	}
	m = sum / float64(len(window))
	ss := 0.0
	for _, v := range window {
		d := v - m
		ss += d * d
	}
	return m, math.Sqrt(ss / float64(len(window))), true
}

// trueRange returns the true range of bar b against the previous close.
func trueRange(b models.Bar, prevClose float64) float64 {
	if models.IsMissing(b.High) || models.IsMissing(b.Low) || models.IsMissing(prevClose) {
		return models.Missing()
	}
	tr := b.High - b.Low
	if hc := math.Abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}
