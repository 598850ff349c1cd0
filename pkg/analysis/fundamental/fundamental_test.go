package fundamental

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quarters(n int) []time.Time {
	out := make([]time.Time, n)
	t := day(2022, 3, 31)
	for i := 0; i < n; i++ {
		out[i] = t
		t = t.AddDate(0, 3, 0)
	}
	return out
}

func years(n int) []time.Time {
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = day(2019+i, 12, 31)
	}
	return out
}

func statementTable(ticker string, periods []time.Time, items map[string][]float64) *models.StatementTable {
	return &models.StatementTable{Ticker: ticker, Periods: periods, Items: items}
}

func sampleRawStatements() *models.RawStatementTable {
	return &models.RawStatementTable{Rows: []models.RawStatementRow{
		{
			Ticker:    "AAPL",
			PeriodEnd: "2023-06-30",
			Items: map[string]string{
				"Total Revenue": "81,797",
				"EBITDA":        "31,260",
				"Net Income":    "19,881",
				"Diluted EPS":   "1.26",
			},
		},
		{
			Ticker:    "MSFT",
			PeriodEnd: "2023-06-30",
			Items:     map[string]string{"Total Revenue": "56,189"},
		},
		{
			Ticker:    "aapl", // ticker matching is case-insensitive
			PeriodEnd: "2023-03-31",
			Items: map[string]string{
				"totalRevenue": "94,836",
				"Diluted EPS":  "1.52",
				"EBITDA":       "not disclosed",
			},
		},
		{
			Ticker:    "AAPL",
			PeriodEnd: "2023-09-30",
			Items:     map[string]string{"Total Revenue": "89,498", "Diluted EPS": "1.46"},
		},
	}}
}

// ── Normalize ──

func TestNormalizeFiltersAndSorts(t *testing.T) {
	st, err := Normalize(sampleRawStatements(), "AAPL")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if st.Ticker != "AAPL" {
		t.Errorf("Ticker = %q, want AAPL", st.Ticker)
	}
	if st.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (MSFT row excluded)", st.Len())
	}

	wantPeriods := []time.Time{day(2023, 3, 31), day(2023, 6, 30), day(2023, 9, 30)}
	for i, want := range wantPeriods {
		if !st.Periods[i].Equal(want) {
			t.Errorf("Periods[%d] = %v, want %v", i, st.Periods[i], want)
		}
	}

	rev, ok := st.Item(models.ItemTotalRevenue)
	if !ok {
		t.Fatal("total_revenue column missing")
	}
	want := []float64{94836, 81797, 89498}
	for i := range want {
		if rev[i] != want[i] {
			t.Errorf("revenue[%d] = %v, want %v", i, rev[i], want[i])
		}
	}
}

func TestNormalizeCoercionNeverZero(t *testing.T) {
	st, err := Normalize(sampleRawStatements(), "AAPL")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	// "not disclosed" in 2023-03-31 EBITDA must be missing, not zero.
	if got := st.Value(models.ItemEBITDA, 0); !models.IsMissing(got) {
		t.Errorf("unparseable EBITDA = %v, want missing", got)
	}
	// Items never provided stay missing.
	if got := st.Value(models.ItemTotalDebt, 0); !models.IsMissing(got) {
		t.Errorf("absent total_debt = %v, want missing", got)
	}
	// A literal zero survives as zero.
	raw := &models.RawStatementTable{Rows: []models.RawStatementRow{
		{Ticker: "X", PeriodEnd: "2023-12-31", Items: map[string]string{"Total Debt": "0"}},
	}}
	st2, err := Normalize(raw, "X")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got := st2.Value(models.ItemTotalDebt, 0); got != 0 || models.IsMissing(got) {
		t.Errorf("zero total_debt = %v, want 0", got)
	}
}

func TestNormalizeUnknownTicker(t *testing.T) {
	_, err := Normalize(sampleRawStatements(), "ZZZZ")
	if err == nil {
		t.Fatal("Normalize with unmatched ticker should fail")
	}
	var unknown *models.ErrUnknownTicker
	if !errors.As(err, &unknown) {
		t.Fatalf("error type = %T, want *ErrUnknownTicker", err)
	}
	if unknown.Ticker != "ZZZZ" {
		t.Errorf("Ticker = %q, want ZZZZ", unknown.Ticker)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	var empty *models.ErrEmptyInput
	if _, err := Normalize(nil, "AAPL"); !errors.As(err, &empty) {
		t.Errorf("nil input error = %v, want *ErrEmptyInput", err)
	}
	if _, err := Normalize(&models.RawStatementTable{}, "AAPL"); !errors.As(err, &empty) {
		t.Errorf("empty input error = %v, want *ErrEmptyInput", err)
	}
}

func TestNormalizeDuplicatePeriodLastWins(t *testing.T) {
	raw := &models.RawStatementTable{Rows: []models.RawStatementRow{
		{Ticker: "AAPL", PeriodEnd: "2023-12-31", Items: map[string]string{"Total Revenue": "100"}},
		{Ticker: "AAPL", PeriodEnd: "2023-12-31", Items: map[string]string{"Total Revenue": "120"}},
	}}
	st, err := Normalize(raw, "AAPL")
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d, want 1", st.Len())
	}
	if got := st.Value(models.ItemTotalRevenue, 0); got != 120 {
		t.Errorf("revenue = %v, want 120 (last write wins)", got)
	}
}

func TestNormalizeBadPeriodDate(t *testing.T) {
	raw := &models.RawStatementTable{Rows: []models.RawStatementRow{
		{Ticker: "AAPL", PeriodEnd: "Q3 FY24", Items: map[string]string{"Total Revenue": "1"}},
	}}
	_, err := Normalize(raw, "AAPL")
	var bad *models.ErrBadPeriod
	if !errors.As(err, &bad) {
		t.Fatalf("error = %v, want *ErrBadPeriod", err)
	}
	if bad.Raw != "Q3 FY24" {
		t.Errorf("Raw = %q, want Q3 FY24", bad.Raw)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234.5", 1234.5},
		{"(200)", -200},
		{"-3.25", -3.25},
		{"12%", 12},
		{"3.4B", 3.4e9},
		{"150M", 150e6},
		{"2.5k", 2500},
		{"$99.95", 99.95},
		{"0", 0},
	}
	for _, tt := range tests {
		if got := ParseValue(tt.in); got != tt.want {
			t.Errorf("ParseValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "-", "N/A", "none", "twelve", "1.2.3"} {
		if got := ParseValue(bad); !models.IsMissing(got) {
			t.Errorf("ParseValue(%q) = %v, want missing", bad, got)
		}
	}
}

// ── Frequency ──

func TestInferFrequency(t *testing.T) {
	if got := InferFrequency(quarters(6)); got != FreqQuarterly {
		t.Errorf("quarterly axis classified as %v", got)
	}
	if got := InferFrequency(years(4)); got != FreqAnnual {
		t.Errorf("annual axis classified as %v", got)
	}
	if got := InferFrequency(quarters(1)); got != FreqAnnual {
		t.Errorf("single period classified as %v, want annual fallback", got)
	}
}

// ── Growth ──

func TestGrowthAnnualYoY(t *testing.T) {
	st := statementTable("AAPL", years(2), map[string][]float64{
		models.ItemTotalRevenue: {100, 110},
	})
	recs, err := Growth(st, YoY, models.ItemTotalRevenue)
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if !models.IsMissing(recs[0].GrowthPct) {
		t.Errorf("first record growth = %v, want missing", recs[0].GrowthPct)
	}
	if math.Abs(recs[1].GrowthPct-10) > 1e-9 {
		t.Errorf("YoY growth = %v, want 10", recs[1].GrowthPct)
	}
}

func TestGrowthQuarterlyYoYUsesOffsetFour(t *testing.T) {
	// Five quarters: YoY compares Q5 against Q1.
	st := statementTable("AAPL", quarters(5), map[string][]float64{
		models.ItemTotalRevenue: {100, 90, 95, 105, 125},
	})
	recs, err := Growth(st, YoY, models.ItemTotalRevenue)
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	for i := 0; i < 4; i++ {
		if !models.IsMissing(recs[i].GrowthPct) {
			t.Errorf("record %d growth = %v, want missing (insufficient history)", i, recs[i].GrowthPct)
		}
	}
	if math.Abs(recs[4].GrowthPct-25) > 1e-9 {
		t.Errorf("YoY growth = %v, want 25", recs[4].GrowthPct)
	}
}

func TestGrowthQoQOffsetOne(t *testing.T) {
	st := statementTable("AAPL", quarters(3), map[string][]float64{
		models.ItemEBITDA: {50, 55, 44},
	})
	recs, err := Growth(st, QoQ, models.ItemEBITDA)
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	if math.Abs(recs[1].GrowthPct-10) > 1e-9 {
		t.Errorf("QoQ[1] = %v, want 10", recs[1].GrowthPct)
	}
	if math.Abs(recs[2].GrowthPct-(-20)) > 1e-9 {
		t.Errorf("QoQ[2] = %v, want -20", recs[2].GrowthPct)
	}
}

func TestGrowthZeroOrMissingBase(t *testing.T) {
	st := statementTable("AAPL", quarters(3), map[string][]float64{
		models.ItemNetIncome: {0, 25, math.NaN()},
	})
	recs, err := Growth(st, QoQ, models.ItemNetIncome)
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	// Base 0 → missing, never a division blowup or 0%.
	if !models.IsMissing(recs[1].GrowthPct) {
		t.Errorf("growth over zero base = %v, want missing", recs[1].GrowthPct)
	}
	// Current missing → missing.
	if !models.IsMissing(recs[2].GrowthPct) {
		t.Errorf("growth with missing current = %v, want missing", recs[2].GrowthPct)
	}
}

func TestGrowthNegativeBaseKeepsSign(t *testing.T) {
	// Loss of 100 swinging to profit of 50 is +150%, not -150%.
	st := statementTable("AAPL", years(2), map[string][]float64{
		models.ItemNetIncome: {-100, 50},
	})
	recs, err := Growth(st, YoY, models.ItemNetIncome)
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	if math.Abs(recs[1].GrowthPct-150) > 1e-9 {
		t.Errorf("growth from -100 to 50 = %v, want +150", recs[1].GrowthPct)
	}

	// Deepening loss reads negative.
	st2 := statementTable("AAPL", years(2), map[string][]float64{
		models.ItemNetIncome: {-100, -140},
	})
	recs2, _ := Growth(st2, YoY, models.ItemNetIncome)
	if math.Abs(recs2[1].GrowthPct-(-40)) > 1e-9 {
		t.Errorf("growth from -100 to -140 = %v, want -40", recs2[1].GrowthPct)
	}
}

func TestGrowthDefaultFields(t *testing.T) {
	st := statementTable("AAPL", years(2), map[string][]float64{
		models.ItemTotalRevenue: {100, 110},
	})
	recs, err := Growth(st, YoY)
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	if want := len(DefaultGrowthFields()) * 2; len(recs) != want {
		t.Errorf("records = %d, want %d", len(recs), want)
	}
}

func TestGrowthUnknownFieldYieldsMissing(t *testing.T) {
	st := statementTable("AAPL", years(3), map[string][]float64{
		models.ItemTotalRevenue: {1, 2, 3},
	})
	recs, err := Growth(st, YoY, "bogus_item")
	if err != nil {
		t.Fatalf("unknown field should not be an error, got %v", err)
	}
	for _, r := range recs {
		if !models.IsMissing(r.GrowthPct) {
			t.Errorf("record %v growth = %v, want missing", r.Period, r.GrowthPct)
		}
	}
}

func TestGrowthStructuralErrors(t *testing.T) {
	var empty *models.ErrEmptyInput
	if _, err := Growth(nil, YoY); !errors.As(err, &empty) {
		t.Errorf("nil table error = %v, want *ErrEmptyInput", err)
	}

	st := statementTable("AAPL", years(2), map[string][]float64{})
	var req *models.ErrInvalidRequest
	if _, err := Growth(st, GrowthPeriod("MoM")); !errors.As(err, &req) {
		t.Errorf("bad period error = %v, want *ErrInvalidRequest", err)
	}
}

func TestCAGR(t *testing.T) {
	got := CAGR(100, 200, 3)
	want := (math.Pow(2, 1.0/3) - 1) * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CAGR(100, 200, 3) = %v, want %v", got, want)
	}
	for _, bad := range []float64{CAGR(-5, 100, 3), CAGR(100, 0, 3), CAGR(100, 200, 0), CAGR(math.NaN(), 1, 1)} {
		if !models.IsMissing(bad) {
			t.Errorf("CAGR out of domain = %v, want missing", bad)
		}
	}
}

// ── Ratios ──

func ratioValue(recs []models.RatioRecord, period time.Time, name string) float64 {
	for _, r := range recs {
		if r.Name == name && r.Period.Equal(period) {
			return r.Value
		}
	}
	return math.NaN()
}

func TestRatiosAsOfJoinNeverLooksAhead(t *testing.T) {
	period := day(2024, 3, 31)
	st := statementTable("AAPL", []time.Time{period}, map[string][]float64{
		models.ItemDilutedEPS: {5},
	})
	prices := models.NewPriceSeries("AAPL", []models.Bar{
		{Date: day(2024, 3, 28), Close: 100},
		{Date: day(2024, 4, 1), Close: 200},
	})

	recs, err := Ratios(st, prices)
	if err != nil {
		t.Fatalf("Ratios error: %v", err)
	}
	// Close must be 100 (2024-03-28), never the later 200.
	if got := ratioValue(recs, period, RatioPE); math.Abs(got-20) > 1e-9 {
		t.Errorf("pe = %v, want 20 (as-of close 100)", got)
	}
}

func TestRatiosPeriodBeforeFirstPrice(t *testing.T) {
	period := day(2020, 12, 31)
	st := statementTable("AAPL", []time.Time{period}, map[string][]float64{
		models.ItemDilutedEPS:   {5},
		models.ItemEBITDA:       {50},
		models.ItemTotalRevenue: {200},
	})
	prices := models.NewPriceSeries("AAPL", []models.Bar{
		{Date: day(2024, 1, 2), Close: 100},
	})

	recs, err := Ratios(st, prices)
	if err != nil {
		t.Fatalf("Ratios error: %v", err)
	}
	if got := ratioValue(recs, period, RatioPE); !models.IsMissing(got) {
		t.Errorf("pe before market history = %v, want missing", got)
	}
	// Price-independent ratios still compute.
	if got := ratioValue(recs, period, RatioEBITDAMargin); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("ebitda_margin = %v, want 0.25", got)
	}
}

func TestRatiosValues(t *testing.T) {
	period := day(2023, 12, 31)
	st := statementTable("AAPL", []time.Time{period}, map[string][]float64{
		models.ItemDilutedEPS:         {5},
		models.ItemStockholdersEquity: {1000},
		models.ItemDilutedShares:      {100},
		models.ItemTotalDebt:          {200},
		models.ItemCashAndEquivalents: {100},
		models.ItemEBITDA:             {50},
		models.ItemTotalRevenue:       {200},
		models.ItemNetIncome:          {30},
	})
	prices := models.NewPriceSeries("AAPL", []models.Bar{{Date: period, Close: 100}})

	recs, err := Ratios(st, prices)
	if err != nil {
		t.Fatalf("Ratios error: %v", err)
	}

	checks := map[string]float64{
		RatioPE:           20,   // 100 / 5
		RatioPB:           10,   // 100 / (1000/100)
		RatioEVEBITDA:     202,  // (100*100 + 200 - 100) / 50
		RatioEBITDAMargin: 0.25, // 50 / 200
		RatioROE:          0.03, // 30 / 1000
	}
	for name, want := range checks {
		if got := ratioValue(recs, period, name); math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestRatiosZeroDenominatorIsMissing(t *testing.T) {
	period := day(2023, 12, 31)
	st := statementTable("AAPL", []time.Time{period}, map[string][]float64{
		models.ItemDilutedEPS:   {0},
		models.ItemTotalRevenue: {0},
		models.ItemEBITDA:       {50},
	})
	prices := models.NewPriceSeries("AAPL", []models.Bar{{Date: period, Close: 100}})

	recs, err := Ratios(st, prices)
	if err != nil {
		t.Fatalf("Ratios error: %v", err)
	}
	if got := ratioValue(recs, period, RatioPE); !models.IsMissing(got) {
		t.Errorf("pe with zero EPS = %v, want missing (not Inf)", got)
	}
	if got := ratioValue(recs, period, RatioEBITDAMargin); !models.IsMissing(got) {
		t.Errorf("margin with zero revenue = %v, want missing", got)
	}
}

func TestRatiosNilPricesDegrades(t *testing.T) {
	period := day(2023, 12, 31)
	st := statementTable("AAPL", []time.Time{period}, map[string][]float64{
		models.ItemEBITDA:       {50},
		models.ItemTotalRevenue: {200},
		models.ItemDilutedEPS:   {5},
	})
	recs, err := Ratios(st, nil)
	if err != nil {
		t.Fatalf("nil prices should degrade, not fail: %v", err)
	}
	if got := ratioValue(recs, period, RatioPE); !models.IsMissing(got) {
		t.Errorf("pe without prices = %v, want missing", got)
	}
	if got := ratioValue(recs, period, RatioEBITDAMargin); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("ebitda_margin = %v, want 0.25", got)
	}
}

func TestRatiosEmptyTable(t *testing.T) {
	var empty *models.ErrEmptyInput
	if _, err := Ratios(nil, nil); !errors.As(err, &empty) {
		t.Errorf("error = %v, want *ErrEmptyInput", err)
	}
}

// ── Growth vs returns ──

func TestGrowthVsReturns(t *testing.T) {
	periods := years(3)
	st := statementTable("AAPL", periods, map[string][]float64{
		models.ItemTotalRevenue: {100, 110, 132},
	})
	prices := models.NewPriceSeries("AAPL", []models.Bar{
		{Date: periods[0], Close: 50},
		{Date: periods[1], Close: 60},
		{Date: periods[2], Close: 66},
	})

	points, err := GrowthVsReturns(st, prices, models.ItemTotalRevenue)
	if err != nil {
		t.Fatalf("GrowthVsReturns error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if math.Abs(points[0].GrowthPct-10) > 1e-9 || math.Abs(points[0].ReturnPct-20) > 1e-9 {
		t.Errorf("point[0] = %+v, want growth 10, return 20", points[0])
	}
	if math.Abs(points[1].GrowthPct-20) > 1e-9 || math.Abs(points[1].ReturnPct-10) > 1e-9 {
		t.Errorf("point[1] = %+v, want growth 20, return 10", points[1])
	}
}

func TestGrowthVsReturnsDropsIncompletePoints(t *testing.T) {
	periods := years(2)
	st := statementTable("AAPL", periods, map[string][]float64{
		models.ItemTotalRevenue: {100, 120},
	})
	// Price history starts after the first period: the joined point is incomplete.
	prices := models.NewPriceSeries("AAPL", []models.Bar{
		{Date: periods[1], Close: 66},
	})
	points, err := GrowthVsReturns(st, prices, models.ItemTotalRevenue)
	if err != nil {
		t.Fatalf("GrowthVsReturns error: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("points = %d, want 0", len(points))
	}
}
