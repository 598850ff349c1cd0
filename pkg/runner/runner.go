// Package runner executes the whole analysis pipeline for a batch of
// tickers concurrently: price history, return statistics, fundamentals,
// and option-chain analytics, fed by a caller-supplied ingest.Source.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketlens/pkg/analysis/derivatives"
	"github.com/seenimoa/marketlens/pkg/analysis/fundamental"
	"github.com/seenimoa/marketlens/pkg/analysis/stats"
	"github.com/seenimoa/marketlens/pkg/analysis/technical"
	"github.com/seenimoa/marketlens/pkg/config"
	"github.com/seenimoa/marketlens/pkg/ingest"
	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

const dailyPeriodsPerYear = 252

// Runner drives the per-ticker pipeline. The zero value plus a Source is
// usable; unset tunables fall back to the configuration defaults.
type Runner struct {
	Source       ingest.Source
	Rate         float64            // annualized risk-free rate for implied vol
	Concurrency  int                // max tickers in flight; <=0 uses the default
	Window       int                // rolling volatility window; <2 uses the default
	Solver       derivatives.Solver // zero value uses the default bracket
	GrowthFields []string           // growth line items; empty uses the default set
}

// New builds a Runner from a configuration. A nil cfg means defaults.
func New(src ingest.Source, cfg *config.Config) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Runner{
		Source:       src,
		Rate:         cfg.RiskFreeRate,
		Concurrency:  cfg.Runner.Concurrency,
		Window:       cfg.Stats.Window,
		Solver:       derivatives.Solver(cfg.Solver),
		GrowthFields: cfg.Growth.Fields,
	}
}

// Request describes the history window fetched for every ticker in a run.
// Zero values fill in: interval 1y, end now, start one year before end.
type Request struct {
	Interval models.Interval `json:"interval"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
}

func (req Request) withDefaults(now time.Time) (Request, error) {
	if req.Interval == "" {
		req.Interval = models.Interval1Y
	} else if !req.Interval.Valid() {
		return req, &models.ErrInvalidRequest{Field: "interval", Reason: fmt.Sprintf("%q is not one of %v", req.Interval, models.Intervals())}
	}
	if req.End.IsZero() {
		req.End = now
	}
	if req.Start.IsZero() {
		req.Start = req.End.AddDate(-1, 0, 0)
	}
	if !req.Start.Before(req.End) {
		return req, &models.ErrInvalidRequest{Field: "date range", Reason: "start must be before end"}
	}
	return req, nil
}

// TickerResult carries everything the pipeline produced for one ticker.
// Fundamentals and chain blocks are nil when the source had nothing for
// them; the price-derived fields are always present.
type TickerResult struct {
	Ticker     string             `json:"ticker"`
	Bars       int                `json:"bars"`
	LastClose  float64            `json:"last_close"`
	Returns    stats.Summary      `json:"returns"`
	Volatility float64            `json:"volatility"` // latest rolling stddev of daily returns
	Trend      *stats.Performance `json:"trend,omitempty"`

	Statements *models.StatementTable `json:"statements,omitempty"`
	Growth     []models.GrowthRecord  `json:"growth,omitempty"`
	Ratios     []models.RatioRecord   `json:"ratios,omitempty"`

	Chain    *derivatives.ChainAnalysis `json:"chain,omitempty"`
	IVSolved int                        `json:"iv_solved"`
}

// Report is the outcome of one batch run.
type Report struct {
	RunID     uuid.UUID                `json:"run_id"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
	Results   map[string]*TickerResult `json:"results"`
	Errors    map[string]string        `json:"errors"`
}

// Run analyzes the tickers concurrently. A ticker whose history cannot be
// fetched lands in Report.Errors and the batch continues; the run itself
// fails only when every ticker failed or the request is unusable.
func (r *Runner) Run(ctx context.Context, tickers []string, req Request) (*Report, error) {
	if r.Source == nil {
		return nil, &models.ErrInvalidRequest{Field: "source", Reason: "must not be nil"}
	}
	symbols := normalizeTickers(tickers)
	if len(symbols) == 0 {
		return nil, &models.ErrEmptyInput{What: "tickers"}
	}
	req, err := req.withDefaults(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	def := config.Default()
	limit := r.Concurrency
	if limit <= 0 {
		limit = def.Runner.Concurrency
	}
	window := r.Window
	if window < 2 {
		window = def.Stats.Window
	}
	solver := r.Solver
	if solver.MaxIter <= 0 {
		solver = derivatives.DefaultSolver()
	}

	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Results:   make(map[string]*TickerResult, len(symbols)),
		Errors:    make(map[string]string),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, symbol := range symbols {
		g.Go(func() error {
			result, err := r.analyzeTicker(gctx, symbol, req, window, solver)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors[symbol] = err.Error() // non-fatal, batch continues
				return nil
			}
			report.Results[symbol] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Duration = time.Since(report.StartedAt)

	if len(report.Results) == 0 {
		errs := make([]error, 0, len(symbols))
		for _, symbol := range symbols {
			errs = append(errs, fmt.Errorf("%s: %s", symbol, report.Errors[symbol]))
		}
		return nil, fmt.Errorf("all tickers failed: %w", errors.Join(errs...))
	}
	return report, nil
}

// analyzeTicker runs the pipeline for one symbol. History is required;
// fundamentals and the option chain are extras whose absence only trims
// the result.
func (r *Runner) analyzeTicker(ctx context.Context, symbol string, req Request, window int, solver derivatives.Solver) (*TickerResult, error) {
	series, err := r.Source.History(ctx, symbol, req.Interval, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("history: %w", ingest.ErrNoData)
	}

	res := &TickerResult{
		Ticker:     symbol,
		Bars:       series.Len(),
		LastClose:  models.Missing(),
		Volatility: models.Missing(),
	}
	closes := series.Closes()
	res.LastClose = closes[len(closes)-1]

	table, err := stats.Returns(series, window)
	if err != nil {
		return nil, fmt.Errorf("returns: %w", err)
	}
	rets, _ := table.Column(stats.ColReturns)
	res.Returns = stats.Describe(rets)
	if vol, ok := table.Column(stats.ColVolatility); ok && len(vol) > 0 {
		res.Volatility = vol[len(vol)-1]
	}
	res.Trend = trendPerformance(closes, rets)

	if raw, err := r.Source.Statements(ctx, symbol); err != nil {
		log.Printf("runner: statements unavailable for %s: %v", symbol, err)
	} else if st, err := fundamental.Normalize(raw, symbol); err != nil {
		log.Printf("runner: normalize failed for %s: %v", symbol, err)
	} else {
		res.Statements = st
		if growth, err := fundamental.Growth(st, fundamental.YoY, r.GrowthFields...); err == nil {
			res.Growth = growth
		}
		if ratios, err := fundamental.Ratios(st, series); err == nil {
			res.Ratios = ratios
		}
	}

	if chain, err := r.Source.OptionChain(ctx, symbol); err != nil {
		log.Printf("runner: option chain unavailable for %s: %v", symbol, err)
	} else {
		if solved, err := solver.ChainIVs(chain, r.Rate, time.Now().UTC()); err != nil {
			log.Printf("runner: implied vols failed for %s: %v", symbol, err)
		} else {
			res.IVSolved = solved
		}
		if analysis, err := derivatives.Analyze(chain); err == nil {
			res.Chain = &analysis
		}
	}

	return res, nil
}

// trendPerformance backtests the standard MACD crossover on the series
// with next-bar execution. Histories too short for the indicator simply
// carry no trend block.
func trendPerformance(closes, rets []float64) *stats.Performance {
	positions, err := technical.MACDCrossoverSignal(closes)
	if err != nil {
		return nil
	}
	stratRets, err := stats.StrategyReturns(positions, rets)
	if err != nil {
		return nil
	}
	perf, err := stats.Evaluate(stratRets, dailyPeriodsPerYear)
	if err != nil {
		return nil
	}
	return &perf
}

func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	var out []string
	for _, t := range tickers {
		symbol := utils.NormalizeTicker(t)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	return out
}

// String renders a compact text summary of the run, one line per ticker.
func (rep *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d analyzed, %d failed in %s\n",
		rep.RunID, len(rep.Results), len(rep.Errors), rep.Duration.Round(time.Millisecond))
	for _, symbol := range slices.Sorted(maps.Keys(rep.Results)) {
		res := rep.Results[symbol]
		fmt.Fprintf(&b, "  %-8s close %s  mean ret %s  vol %s",
			symbol, utils.FormatCompact(res.LastClose),
			utils.FormatPct(res.Returns.Mean*100), utils.FormatPct(res.Volatility*100))
		if res.Chain != nil {
			fmt.Fprintf(&b, "  atm iv %s", utils.FormatPct(res.Chain.ATMIV*100))
		}
		b.WriteByte('\n')
	}
	for _, symbol := range slices.Sorted(maps.Keys(rep.Errors)) {
		fmt.Fprintf(&b, "  %-8s failed: %s\n", symbol, rep.Errors[symbol])
	}
	return b.String()
}
