package technical

import (
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Position values emitted by the signal generators.
const (
	Long  = 1.0
	Flat  = 0.0
	Short = -1.0
)

// DefaultMomentumWindows are the lookback horizons used by the momentum
// strategy.
var DefaultMomentumWindows = []int{20, 60, 250}

// MACrossoverSignal returns the position column of a moving-average
// crossover strategy: long while the short SMA sits above the long SMA,
// short once it drops below.
func MACrossoverSignal(closes []float64, short, long int) ([]float64, error) {
	if short >= long {
		return nil, &models.ErrInvalidParameter{
			Param: "short period", Value: float64(short), Reason: "must be below the long period",
		}
	}
	shortMA, err := SMA(closes, short)
	if err != nil {
		return nil, err
	}
	longMA, err := SMA(closes, long)
	if err != nil {
		return nil, err
	}
	out := missingSlice(len(closes))
	for i := range closes {
		if models.IsMissing(shortMA[i]) || models.IsMissing(longMA[i]) {
			continue
		}
		if shortMA[i] > longMA[i] {
			out[i] = Long
		} else {
			out[i] = Short
		}
	}
	return out, nil
}

// BollingerReversionSignal returns the position column of a band
// mean-reversion strategy: long below the lower band, short above the upper
// band, flat inside.
func BollingerReversionSignal(closes []float64, period int, width float64) ([]float64, error) {
	bs, err := Bollinger(closes, period, width)
	if err != nil {
		return nil, err
	}
	out := missingSlice(len(closes))
	for i, c := range closes {
		if models.IsMissing(c) || models.IsMissing(bs.Upper[i]) || models.IsMissing(bs.Lower[i]) {
			continue
		}
		switch {
		case c < bs.Lower[i]:
			out[i] = Long
		case c > bs.Upper[i]:
			out[i] = Short
		default:
			out[i] = Flat
		}
	}
	return out, nil
}

// BreakoutSignal returns the position column of a channel breakout
// strategy: long when the close clears the prior window's highest high,
// short when it falls through the lowest low, flat inside the channel.
func BreakoutSignal(bars []models.Bar, period int) ([]float64, error) {
	if err := checkPeriod("period", period, len(bars)); err != nil {
		return nil, err
	}
	out := missingSlice(len(bars))
	for i := period; i < len(bars); i++ {
		hi, lo, ok := channelExtremes(bars[i-period : i])
		c := bars[i].Close
		if !ok || models.IsMissing(c) {
			continue
		}
		switch {
		case c > hi:
			out[i] = Long
		case c < lo:
			out[i] = Short
		default:
			out[i] = Flat
		}
	}
	return out, nil
}

// MACDCrossoverSignal returns the position column of a MACD crossover
// strategy on the standard 12/26/9 settings: long while the MACD line sits
// above its signal line, short once it drops below.
func MACDCrossoverSignal(closes []float64) ([]float64, error) {
	ms, err := MACD(closes, DefaultFastPeriod, DefaultSlowPeriod, DefaultSignalPeriod)
	if err != nil {
		return nil, err
	}
	out := missingSlice(len(closes))
	for i := range closes {
		if models.IsMissing(ms.Line[i]) || models.IsMissing(ms.Signal[i]) {
			continue
		}
		if ms.Line[i] > ms.Signal[i] {
			out[i] = Long
		} else {
			out[i] = Short
		}
	}
	return out, nil
}

// MomentumSignal returns the position column of a momentum strategy: long
// when the average of the trailing returns across the windows is positive,
// flat otherwise.
func MomentumSignal(closes []float64, windows []int) ([]float64, error) {
	if len(windows) == 0 {
		return nil, &models.ErrEmptyInput{What: "momentum windows"}
	}
	for _, w := range windows {
		if err := checkPeriod("window", w, len(closes)); err != nil {
			return nil, err
		}
	}
	out := missingSlice(len(closes))
	for i, c := range closes {
		if models.IsMissing(c) {
			continue
		}
		sum := 0.0
		ok := true
		for _, w := range windows {
			if i < w {
				ok = false
				break
			}
			base := closes[i-w]
			if models.IsMissing(base) || base == 0 {
				ok = false
				break
			}
			sum += c/base - 1
		}
		if !ok {
			continue
		}
		if sum/float64(len(windows)) > 0 {
			out[i] = Long
		} else {
			out[i] = Flat
		}
	}
	return out, nil
}

// --- helpers ---

// channelExtremes returns the highest high and lowest low of the window, or
// ok=false when any bound is missing.
func channelExtremes(window []models.Bar) (hi, lo float64, ok bool) {
	hi, lo = math.Inf(-1), math.Inf(1)
	for _, b := range window {
		if models.IsMissing(b.High) || models.IsMissing(b.Low) {
			return 0, 0, false
		}
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	return hi, lo, true
}
