package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Valid reports whether t is a recognized option type.
func (t OptionType) Valid() bool { return t == Call || t == Put }

// OptionContract represents a single listed option contract.
type OptionContract struct {
	Ticker       string     `json:"ticker"`
	Expiry       time.Time  `json:"expiry"`
	Strike       float64    `json:"strike"`
	Type         OptionType `json:"type"`
	LastPrice    float64    `json:"last_price"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Volume       float64    `json:"volume"`
	OpenInterest float64    `json:"open_interest"`
	ImpliedVol   float64    `json:"implied_vol"` // annualized, e.g. 0.25 for 25%
}

// Mid returns the usable market price of the contract: the bid/ask midpoint
// when both sides are quoted, otherwise the last traded price, otherwise the
// missing sentinel.
func (c OptionContract) Mid() float64 {
	if c.Bid > 0 && c.Ask > 0 && !IsMissing(c.Bid) && !IsMissing(c.Ask) {
		return (c.Bid + c.Ask) / 2
	}
	if c.LastPrice > 0 && !IsMissing(c.LastPrice) {
		return c.LastPrice
	}
	return Missing()
}

// OptionChain represents the listed calls and puts for a ticker across one
// or more expiries.
type OptionChain struct {
	Ticker    string           `json:"ticker"`
	Spot      float64          `json:"spot"`
	Expiries  []time.Time      `json:"expiries"`
	Calls     []OptionContract `json:"calls"`
	Puts      []OptionContract `json:"puts"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Len returns the total number of contracts in the chain.
func (oc *OptionChain) Len() int { return len(oc.Calls) + len(oc.Puts) }

// Contracts returns all contracts, calls first.
func (oc *OptionChain) Contracts() []OptionContract {
	out := make([]OptionContract, 0, oc.Len())
	out = append(out, oc.Calls...)
	out = append(out, oc.Puts...)
	return out
}

// TotalCallOI sums open interest across calls, skipping missing values.
func (oc *OptionChain) TotalCallOI() float64 { return sumOI(oc.Calls) }

// TotalPutOI sums open interest across puts, skipping missing values.
func (oc *OptionChain) TotalPutOI() float64 { return sumOI(oc.Puts) }

func sumOI(contracts []OptionContract) float64 {
	var total float64
	for _, c := range contracts {
		if IsMissing(c.OpenInterest) {
			continue
		}
		total += c.OpenInterest
	}
	return total
}

// Greeks holds the analytic sensitivities of an option price.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"` // per year
	Vega  float64 `json:"vega"`  // per unit of volatility
	Rho   float64 `json:"rho"`   // per unit of rate
}

// OptionQuote is a model price together with its Greeks.
type OptionQuote struct {
	Price float64 `json:"price"`
	Greeks
}
