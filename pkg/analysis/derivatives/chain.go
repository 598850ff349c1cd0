package derivatives

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// Aggregation selectors for TermStructure.
const (
	AggMean   = "mean"
	AggMedian = "median"
)

// ComputeChainIVs solves for the implied volatility of every contract in the
// chain using the default solver, writing results into each contract's
// ImpliedVol field. See Solver.ChainIVs.
func ComputeChainIVs(chain *models.OptionChain, rate float64, now time.Time) (int, error) {
	return DefaultSolver().ChainIVs(chain, rate, now)
}

// ChainIVs solves for per-contract implied volatility from each contract's
// Mid price. Contracts that are expired, unquoted, or unsolvable get the
// missing sentinel; the batch always runs to completion. Returns the number
// of contracts solved.
func (s Solver) ChainIVs(chain *models.OptionChain, rate float64, now time.Time) (int, error) {
	if chain == nil || chain.Len() == 0 {
		return 0, &models.ErrEmptyInput{What: "option chain"}
	}
	if models.IsMissing(chain.Spot) || chain.Spot <= 0 {
		return 0, &models.ErrInvalidParameter{Param: "spot", Value: chain.Spot, Reason: "must be positive"}
	}

	solved := s.solveSide(chain.Calls, chain.Spot, rate, now)
	solved += s.solveSide(chain.Puts, chain.Spot, rate, now)

	if failed := chain.Len() - solved; failed > 0 {
		log.Printf("derivatives: implied vol unsolved for %d of %d contracts on %s",
			failed, chain.Len(), chain.Ticker)
	}
	return solved, nil
}

func (s Solver) solveSide(contracts []models.OptionContract, spot, rate float64, now time.Time) int {
	solved := 0
	for i := range contracts {
		c := &contracts[i]
		tte := utils.YearsBetween(now, c.Expiry)
		if tte <= 0 {
			c.ImpliedVol = models.Missing()
			continue
		}
		iv, err := s.ImpliedVol(PricingInputs{
			Spot:         spot,
			Strike:       c.Strike,
			TimeToExpiry: tte,
			Rate:         rate,
			Type:         c.Type,
		}, c.Mid())
		if err != nil {
			c.ImpliedVol = models.Missing()
			continue
		}
		c.ImpliedVol = iv
		solved++
	}
	return solved
}

// TermPoint is one expiry on the implied-volatility term structure.
type TermPoint struct {
	Expiry time.Time `json:"expiry"`
	Years  float64   `json:"years"`
	IV     float64   `json:"iv"`
	Count  int       `json:"count"`
}

// TermStructure aggregates per-contract implied volatility by expiry,
// skipping contracts whose IV is missing. Expiries with no solved contracts
// are omitted. agg selects AggMean or AggMedian.
func TermStructure(chain *models.OptionChain, agg string, now time.Time) ([]TermPoint, error) {
	if chain == nil || chain.Len() == 0 {
		return nil, &models.ErrEmptyInput{What: "option chain"}
	}
	if agg != AggMean && agg != AggMedian {
		return nil, &models.ErrInvalidRequest{Field: "aggregation", Reason: "must be mean or median"}
	}

	groups := map[time.Time][]float64{}
	for _, c := range chain.Contracts() {
		if models.IsMissing(c.ImpliedVol) {
			continue
		}
		groups[c.Expiry] = append(groups[c.Expiry], c.ImpliedVol)
	}

	points := make([]TermPoint, 0, len(groups))
	for expiry, ivs := range groups {
		p := TermPoint{Expiry: expiry, Years: utils.YearsBetween(now, expiry), Count: len(ivs)}
		if agg == AggMedian {
			p.IV = median(ivs)
		} else {
			p.IV = mean(ivs)
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Expiry.Before(points[j].Expiry) })
	return points, nil
}

// StrikeOI is the aggregate open interest at one strike.
type StrikeOI struct {
	Strike float64 `json:"strike"`
	CallOI float64 `json:"call_oi"`
	PutOI  float64 `json:"put_oi"`
}

// OpenInterestByStrike totals call and put open interest per strike, sorted
// ascending by strike. Missing open interest is skipped.
func OpenInterestByStrike(chain *models.OptionChain) []StrikeOI {
	if chain == nil {
		return nil
	}

	callOI := map[float64]float64{}
	putOI := map[float64]float64{}
	strikeSet := map[float64]bool{}
	for _, c := range chain.Calls {
		strikeSet[c.Strike] = true
		if !models.IsMissing(c.OpenInterest) {
			callOI[c.Strike] += c.OpenInterest
		}
	}
	for _, p := range chain.Puts {
		strikeSet[p.Strike] = true
		if !models.IsMissing(p.OpenInterest) {
			putOI[p.Strike] += p.OpenInterest
		}
	}

	out := make([]StrikeOI, 0, len(strikeSet))
	for s := range strikeSet {
		out = append(out, StrikeOI{Strike: s, CallOI: callOI[s], PutOI: putOI[s]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// SurfacePoint is one (expiry, strike) cell of the implied-volatility
// surface.
type SurfacePoint struct {
	Expiry time.Time         `json:"expiry"`
	Strike float64           `json:"strike"`
	Type   models.OptionType `json:"type"`
	IV     float64           `json:"iv"`
}

// VolSurface flattens the chain's solved implied volatilities into tidy
// records ordered by expiry, strike and type. Contracts with missing IV are
// excluded.
func VolSurface(chain *models.OptionChain) []SurfacePoint {
	if chain == nil {
		return nil
	}
	var out []SurfacePoint
	for _, c := range chain.Contracts() {
		if models.IsMissing(c.ImpliedVol) {
			continue
		}
		out = append(out, SurfacePoint{Expiry: c.Expiry, Strike: c.Strike, Type: c.Type, IV: c.ImpliedVol})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Expiry.Equal(out[j].Expiry) {
			return out[i].Expiry.Before(out[j].Expiry)
		}
		if out[i].Strike != out[j].Strike {
			return out[i].Strike < out[j].Strike
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// ChainAnalysis summarizes the positioning visible in an option chain.
type ChainAnalysis struct {
	Ticker     string  `json:"ticker"`
	Spot       float64 `json:"spot"`
	ATMStrike  float64 `json:"atm_strike"`
	ATMIV      float64 `json:"atm_iv"`     // mean IV at the ATM strike
	IVSkew     float64 `json:"iv_skew"`    // ATM put IV minus ATM call IV
	PCR        float64 `json:"pcr"`        // put OI / call OI
	MaxPain    float64 `json:"max_pain"`
	Support    float64 `json:"support"`    // strike with the largest put OI
	Resistance float64 `json:"resistance"` // strike with the largest call OI
	Sentiment  string  `json:"sentiment"`  // bullish, bearish or neutral
}

// Analyze derives the chain summary: ATM strike and vol, put-call ratio,
// max pain, and OI-based support and resistance.
func Analyze(chain *models.OptionChain) (ChainAnalysis, error) {
	if chain == nil || chain.Len() == 0 {
		return ChainAnalysis{}, &models.ErrEmptyInput{What: "option chain"}
	}

	a := ChainAnalysis{Ticker: chain.Ticker, Spot: chain.Spot}
	a.ATMStrike = atmStrike(chain)
	a.ATMIV, a.IVSkew = atmVol(chain, a.ATMStrike)
	a.PCR = putCallRatio(chain)
	a.MaxPain = MaxPain(chain)
	a.Support, a.Resistance = oiLevels(chain)

	switch {
	case models.IsMissing(a.PCR):
		a.Sentiment = "neutral"
	case a.PCR > 1.2:
		a.Sentiment = "bullish" // heavy put writing builds support under spot
	case a.PCR < 0.7:
		a.Sentiment = "bearish"
	default:
		a.Sentiment = "neutral"
	}

	return a, nil
}

// MaxPain returns the settlement strike minimizing the aggregate expiry
// payout to option holders. Missing when the chain carries no open interest.
func MaxPain(chain *models.OptionChain) float64 {
	if chain == nil || chain.Len() == 0 {
		return models.Missing()
	}

	callOI := map[float64]float64{}
	putOI := map[float64]float64{}
	strikeSet := map[float64]bool{}
	totalOI := 0.0
	for _, c := range chain.Calls {
		strikeSet[c.Strike] = true
		if !models.IsMissing(c.OpenInterest) {
			callOI[c.Strike] += c.OpenInterest
			totalOI += c.OpenInterest
		}
	}
	for _, p := range chain.Puts {
		strikeSet[p.Strike] = true
		if !models.IsMissing(p.OpenInterest) {
			putOI[p.Strike] += p.OpenInterest
			totalOI += p.OpenInterest
		}
	}
	if totalOI <= 0 {
		return models.Missing()
	}

	strikes := make([]float64, 0, len(strikeSet))
	for s := range strikeSet {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)

	minPain := math.MaxFloat64
	pain := models.Missing()
	for _, settle := range strikes {
		total := 0.0
		for _, s := range strikes {
			if s < settle {
				total += (settle - s) * callOI[s] // calls ITM below the settle
			}
			if s > settle {
				total += (s - settle) * putOI[s] // puts ITM above the settle
			}
		}
		if total < minPain {
			minPain = total
			pain = settle
		}
	}
	return pain
}

// --- helpers ---

func atmStrike(chain *models.OptionChain) float64 {
	if models.IsMissing(chain.Spot) || chain.Spot <= 0 {
		return models.Missing()
	}
	best := models.Missing()
	bestDiff := math.MaxFloat64
	for _, c := range chain.Contracts() {
		diff := math.Abs(c.Strike - chain.Spot)
		if diff < bestDiff {
			bestDiff = diff
			best = c.Strike
		}
	}
	return best
}

func atmVol(chain *models.OptionChain, strike float64) (atmIV, skew float64) {
	if models.IsMissing(strike) {
		return models.Missing(), models.Missing()
	}
	var callIVs, putIVs []float64
	for _, c := range chain.Calls {
		if c.Strike == strike && !models.IsMissing(c.ImpliedVol) {
			callIVs = append(callIVs, c.ImpliedVol)
		}
	}
	for _, p := range chain.Puts {
		if p.Strike == strike && !models.IsMissing(p.ImpliedVol) {
			putIVs = append(putIVs, p.ImpliedVol)
		}
	}
	switch {
	case len(callIVs) > 0 && len(putIVs) > 0:
		c, p := mean(callIVs), mean(putIVs)
		return (c + p) / 2, p - c
	case len(callIVs) > 0:
		return mean(callIVs), models.Missing()
	case len(putIVs) > 0:
		return mean(putIVs), models.Missing()
	}
	return models.Missing(), models.Missing()
}

func putCallRatio(chain *models.OptionChain) float64 {
	callOI := chain.TotalCallOI()
	if callOI <= 0 {
		return models.Missing()
	}
	return chain.TotalPutOI() / callOI
}

func oiLevels(chain *models.OptionChain) (support, resistance float64) {
	support, resistance = models.Missing(), models.Missing()
	var maxPut, maxCall float64
	for _, st := range OpenInterestByStrike(chain) {
		if st.PutOI > maxPut {
			maxPut = st.PutOI
			support = st.Strike
		}
		if st.CallOI > maxCall {
			maxCall = st.CallOI
			resistance = st.Strike
		}
	}
	return support, resistance
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return models.Missing()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return models.Missing()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
