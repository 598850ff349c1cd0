// Package derivatives prices vanilla European options and derives
// positioning analytics from option chains.
package derivatives

import (
	"errors"
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

var (
	// ErrNoSolution is returned when no volatility in the search bracket can
	// reproduce the observed market price.
	ErrNoSolution = errors.New("derivatives: no implied volatility solution in bracket")

	// ErrNoConvergence is returned when the solver exhausts its iteration
	// budget before meeting tolerance.
	ErrNoConvergence = errors.New("derivatives: implied volatility solver did not converge")
)

// PricingInputs carries everything the Black-Scholes closed form needs.
type PricingInputs struct {
	Spot         float64           `json:"spot"`
	Strike       float64           `json:"strike"`
	TimeToExpiry float64           `json:"time_to_expiry"` // years
	Vol          float64           `json:"vol"`            // annualized, e.g. 0.25
	Rate         float64           `json:"rate"`           // continuously compounded
	Type         models.OptionType `json:"type"`
}

func (in PricingInputs) withVol(sigma float64) PricingInputs {
	in.Vol = sigma
	return in
}

// Price returns the Black-Scholes price and analytic Greeks for a European
// option. Theta and rho are per year, vega per unit of volatility.
func Price(in PricingInputs) (models.OptionQuote, error) {
	if err := validateInputs(in, true); err != nil {
		return models.OptionQuote{}, err
	}

	sqrtT := math.Sqrt(in.TimeToExpiry)
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate+0.5*in.Vol*in.Vol)*in.TimeToExpiry) / (in.Vol * sqrtT)
	d2 := d1 - in.Vol*sqrtT
	disc := math.Exp(-in.Rate * in.TimeToExpiry)

	q := models.OptionQuote{}
	q.Gamma = normPDF(d1) / (in.Spot * in.Vol * sqrtT)
	q.Vega = in.Spot * normPDF(d1) * sqrtT

	switch in.Type {
	case models.Call:
		q.Price = in.Spot*normCDF(d1) - in.Strike*disc*normCDF(d2)
		q.Delta = normCDF(d1)
		q.Theta = -(in.Spot*normPDF(d1)*in.Vol)/(2*sqrtT) - in.Rate*in.Strike*disc*normCDF(d2)
		q.Rho = in.Strike * in.TimeToExpiry * disc * normCDF(d2)
	case models.Put:
		q.Price = in.Strike*disc*normCDF(-d2) - in.Spot*normCDF(-d1)
		q.Delta = normCDF(d1) - 1
		q.Theta = -(in.Spot*normPDF(d1)*in.Vol)/(2*sqrtT) + in.Rate*in.Strike*disc*normCDF(-d2)
		q.Rho = -in.Strike * in.TimeToExpiry * disc * normCDF(-d2)
	}

	return q, nil
}

// IntrinsicValue is the exercise value of an option, the model price limit
// at expiry. Callers value expiring contracts with this rather than passing
// a zero time to Price.
func IntrinsicValue(typ models.OptionType, spot, strike float64) float64 {
	switch typ {
	case models.Call:
		return math.Max(0, spot-strike)
	case models.Put:
		return math.Max(0, strike-spot)
	}
	return models.Missing()
}

// Solver holds the bracket and stopping rules for implied-volatility search.
type Solver struct {
	Lo      float64 `json:"lo"`
	Hi      float64 `json:"hi"`
	Tol     float64 `json:"tol"`
	MaxIter int     `json:"max_iter"`
}

// DefaultSolver returns the standard bisection bracket.
func DefaultSolver() Solver {
	return Solver{Lo: 1e-6, Hi: 5.0, Tol: 1e-6, MaxIter: 100}
}

// ImpliedVol inverts the pricing formula for the volatility implied by an
// observed market price, using the default solver. The Vol field of in is
// ignored.
func ImpliedVol(in PricingInputs, marketPrice float64) (float64, error) {
	return DefaultSolver().ImpliedVol(in, marketPrice)
}

// ImpliedVol runs a bounded bisection for the volatility that reproduces
// marketPrice. A price at or below intrinsic value, or outside what any
// volatility in the bracket can produce, yields ErrNoSolution; hitting the
// iteration cap yields ErrNoConvergence.
func (s Solver) ImpliedVol(in PricingInputs, marketPrice float64) (float64, error) {
	if err := validateInputs(in, false); err != nil {
		return models.Missing(), err
	}
	if models.IsMissing(marketPrice) || marketPrice <= 0 {
		return models.Missing(), ErrNoSolution
	}
	if marketPrice <= IntrinsicValue(in.Type, in.Spot, in.Strike) {
		return models.Missing(), ErrNoSolution
	}

	f := func(sigma float64) float64 {
		q, err := Price(in.withVol(sigma))
		if err != nil {
			return models.Missing()
		}
		return q.Price - marketPrice
	}

	lo, hi := s.Lo, s.Hi
	flo := f(lo)
	if flo*f(hi) > 0 {
		return models.Missing(), ErrNoSolution
	}

	for i := 0; i < s.MaxIter; i++ {
		mid := (lo + hi) / 2
		fmid := f(mid)
		if math.Abs(fmid) < s.Tol || hi-lo < s.Tol {
			return mid, nil
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo = mid
			flo = fmid
		}
	}

	return models.Missing(), ErrNoConvergence
}

// --- helpers ---

// validateInputs rejects out-of-domain parameters. The volatility check is
// skipped when solving for implied volatility.
func validateInputs(in PricingInputs, checkVol bool) error {
	if !in.Type.Valid() {
		return &models.ErrInvalidRequest{Field: "option type", Reason: "must be call or put"}
	}
	if models.IsMissing(in.Spot) || in.Spot <= 0 {
		return &models.ErrInvalidParameter{Param: "spot", Value: in.Spot, Reason: "must be positive"}
	}
	if models.IsMissing(in.Strike) || in.Strike <= 0 {
		return &models.ErrInvalidParameter{Param: "strike", Value: in.Strike, Reason: "must be positive"}
	}
	if models.IsMissing(in.TimeToExpiry) || in.TimeToExpiry <= 0 {
		return &models.ErrInvalidParameter{Param: "time_to_expiry", Value: in.TimeToExpiry, Reason: "must be positive"}
	}
	if checkVol && (models.IsMissing(in.Vol) || in.Vol <= 0) {
		return &models.ErrInvalidParameter{Param: "vol", Value: in.Vol, Reason: "must be positive"}
	}
	if models.IsMissing(in.Rate) {
		return &models.ErrInvalidParameter{Param: "rate", Value: in.Rate, Reason: "must be a finite number"}
	}
	return nil
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
