package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// --- chart payload ---

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta       `json:"meta"`
	Timestamp  []int64         `json:"timestamp"`
	Indicators chartIndicators `json:"indicators"`
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type chartIndicators struct {
	Quote []chartQuote `json:"quote"`
}

// chartQuote carries the OHLCV arrays. Slots are nullable: exchanges emit
// null for halted or unreported bars.
type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DecodeChart decodes a chart JSON payload into a sorted price series.
// Null OHLCV slots become missing values; rows where every price is null
// (holidays, dead sessions) are dropped entirely.
func DecodeChart(r io.Reader) (*models.PriceSeries, error) {
	var resp chartResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode chart payload: %w", err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart payload error %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart payload: %w", ErrNoData)
	}
	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart payload: %w", ErrNoData)
	}
	quote := result.Indicators.Quote[0]

	series := &models.PriceSeries{Ticker: utils.NormalizeTicker(result.Meta.Symbol)}
	for i, ts := range result.Timestamp {
		bar := models.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   deref(quote.Open, i),
			High:   deref(quote.High, i),
			Low:    deref(quote.Low, i),
			Close:  deref(quote.Close, i),
			Volume: deref(quote.Volume, i),
		}
		if models.IsMissing(bar.Open) && models.IsMissing(bar.High) &&
			models.IsMissing(bar.Low) && models.IsMissing(bar.Close) {
			continue
		}
		series.Append(bar)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("chart payload: %w", ErrNoData)
	}
	return series, nil
}

// --- fundamentals payload ---

type fundamentalsResponse struct {
	QuoteSummary struct {
		Result []fundamentalsResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type fundamentalsResult struct {
	IncomeAnnual      *statementHistory `json:"incomeStatementHistory"`
	IncomeQuarterly   *statementHistory `json:"incomeStatementHistoryQuarterly"`
	BalanceAnnual     *statementHistory `json:"balanceSheetHistory"`
	BalanceQuarterly  *statementHistory `json:"balanceSheetHistoryQuarterly"`
	CashflowAnnual    *statementHistory `json:"cashflowStatementHistory"`
	CashflowQuarterly *statementHistory `json:"cashflowStatementHistoryQuarterly"`
}

// statementHistory holds one quoteSummary statement module. The inner
// array key differs per module (incomeStatementHistory,
// balanceSheetStatements, cashflowStatements), so unmarshalling takes
// whichever field decodes as an array of statement objects.
type statementHistory struct {
	Statements []map[string]json.RawMessage
}

func (h *statementHistory) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		if key == "maxAge" {
			continue
		}
		var statements []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &statements); err != nil {
			continue
		}
		h.Statements = statements
		return nil
	}
	return nil
}

// statementValue is one reported figure: a raw numeric plus a formatted
// display string. Raw wins when present; sparse fields sometimes carry
// only the formatted form.
type statementValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v statementValue) text() string {
	if v.Raw != nil {
		return strconv.FormatFloat(*v.Raw, 'f', -1, 64)
	}
	return v.Fmt
}

func (v statementValue) dateString() string {
	if v.Fmt != "" {
		return v.Fmt
	}
	if v.Raw != nil {
		return utils.FormatDate(time.Unix(int64(*v.Raw), 0).UTC())
	}
	return ""
}

// DecodeFundamentals decodes a quoteSummary JSON payload into raw
// statement rows, one per fiscal period, with income, balance sheet, and
// cash flow fields merged into the same row. Values stay strings; the
// normalizer owns coercion.
//
// Annual and quarterly histories share fiscal period-end dates, so the two
// sets are never mixed: annual wins whenever it has rows, and quarterly is
// used only when no annual module reported anything.
func DecodeFundamentals(r io.Reader, ticker string) (*models.RawStatementTable, error) {
	var resp fundamentalsResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode fundamentals payload: %w", err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("fundamentals payload error %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("fundamentals payload: %w", ErrNoData)
	}
	result := resp.QuoteSummary.Result[0]

	modules := []*statementHistory{result.IncomeAnnual, result.BalanceAnnual, result.CashflowAnnual}
	if !hasStatements(modules) {
		modules = []*statementHistory{result.IncomeQuarterly, result.BalanceQuarterly, result.CashflowQuarterly}
	}

	byPeriod := make(map[string]map[string]string)
	var order []string
	for _, module := range modules {
		if module == nil {
			continue
		}
		for _, stmt := range module.Statements {
			period, items := flattenStatement(stmt)
			if period == "" || len(items) == 0 {
				continue
			}
			if _, ok := byPeriod[period]; !ok {
				byPeriod[period] = make(map[string]string)
				order = append(order, period)
			}
			for k, v := range items {
				byPeriod[period][k] = v
			}
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("fundamentals payload: %w", ErrNoData)
	}
	return buildRawTable(utils.NormalizeTicker(ticker), order, byPeriod), nil
}

func hasStatements(modules []*statementHistory) bool {
	for _, m := range modules {
		if m != nil && len(m.Statements) > 0 {
			return true
		}
	}
	return false
}

// flattenStatement pulls the period end and the field values out of one
// statement object. Fields that do not decode as {raw, fmt} objects
// (maxAge and friends) are skipped.
func flattenStatement(stmt map[string]json.RawMessage) (period string, items map[string]string) {
	items = make(map[string]string)
	for field, raw := range stmt {
		var v statementValue
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if field == "endDate" {
			period = v.dateString()
			continue
		}
		if s := v.text(); s != "" {
			items[field] = s
		}
	}
	return period, items
}

// --- options payload ---

type optionsResponse struct {
	OptionChain struct {
		Result []optionsResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"optionChain"`
}

type optionsResult struct {
	UnderlyingSymbol string          `json:"underlyingSymbol"`
	ExpirationDates  []int64         `json:"expirationDates"`
	Quote            optionsQuote    `json:"quote"`
	Options          []optionsExpiry `json:"options"`
}

type optionsQuote struct {
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}

type optionsExpiry struct {
	ExpirationDate int64            `json:"expirationDate"`
	Calls          []optionContract `json:"calls"`
	Puts           []optionContract `json:"puts"`
}

type optionContract struct {
	Strike            float64  `json:"strike"`
	LastPrice         float64  `json:"lastPrice"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Volume            *float64 `json:"volume"`
	OpenInterest      *float64 `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	Expiration        int64    `json:"expiration"`
}

// DecodeOptionChain decodes an options JSON payload into an OptionChain.
// Unquoted volume, open interest, and implied volatility become missing
// values rather than zeros.
func DecodeOptionChain(r io.Reader) (*models.OptionChain, error) {
	var resp optionsResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode option chain payload: %w", err)
	}
	if e := resp.OptionChain.Error; e != nil {
		return nil, fmt.Errorf("option chain payload error %s: %s", e.Code, e.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("option chain payload: %w", ErrNoData)
	}
	result := resp.OptionChain.Result[0]

	chain := &models.OptionChain{
		Ticker:    utils.NormalizeTicker(result.UnderlyingSymbol),
		Spot:      floatOrMissing(result.Quote.RegularMarketPrice),
		FetchedAt: time.Now().UTC(),
	}
	for _, ts := range result.ExpirationDates {
		chain.Expiries = append(chain.Expiries, time.Unix(ts, 0).UTC())
	}
	for _, block := range result.Options {
		if len(result.ExpirationDates) == 0 && block.ExpirationDate > 0 {
			chain.Expiries = append(chain.Expiries, time.Unix(block.ExpirationDate, 0).UTC())
		}
		for _, c := range block.Calls {
			chain.Calls = append(chain.Calls, buildContract(chain.Ticker, models.Call, block.ExpirationDate, c))
		}
		for _, p := range block.Puts {
			chain.Puts = append(chain.Puts, buildContract(chain.Ticker, models.Put, block.ExpirationDate, p))
		}
	}
	if chain.Len() == 0 {
		return nil, fmt.Errorf("option chain payload: %w", ErrNoData)
	}
	return chain, nil
}

// buildContract maps one payload contract onto the model. The contract's
// own expiration timestamp wins over the block-level one when present.
func buildContract(ticker string, typ models.OptionType, blockExpiry int64, c optionContract) models.OptionContract {
	expiry := blockExpiry
	if c.Expiration > 0 {
		expiry = c.Expiration
	}
	return models.OptionContract{
		Ticker:       ticker,
		Expiry:       time.Unix(expiry, 0).UTC(),
		Strike:       c.Strike,
		Type:         typ,
		LastPrice:    c.LastPrice,
		Bid:          c.Bid,
		Ask:          c.Ask,
		Volume:       floatOrMissing(c.Volume),
		OpenInterest: floatOrMissing(c.OpenInterest),
		ImpliedVol:   floatOrMissing(c.ImpliedVolatility),
	}
}

// --- helpers ---

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return models.Missing()
	}
	return *vals[i]
}

func floatOrMissing(v *float64) float64 {
	if v == nil {
		return models.Missing()
	}
	return *v
}

// buildRawTable assembles merged period rows into a raw statement table,
// keeping first-seen period order.
func buildRawTable(ticker string, order []string, byPeriod map[string]map[string]string) *models.RawStatementTable {
	table := &models.RawStatementTable{}
	for _, period := range order {
		table.Rows = append(table.Rows, models.RawStatementRow{
			Ticker:    ticker,
			PeriodEnd: period,
			Items:     byPeriod[period],
		})
	}
	return table
}
