package technical

import (
	"errors"
	"math"
	"testing"

	"github.com/seenimoa/marketlens/pkg/models"
)

// trendCloses builds an 80-bar series: 40 flat bars at 100, 20 rising to
// 140, then 20 falling to 80.
func trendCloses() []float64 {
	out := make([]float64, 80)
	for i := range out {
		switch {
		case i < 40:
			out[i] = 100
		case i < 60:
			out[i] = 100 + 2*float64(i-39)
		default:
			out[i] = 140 - 3*float64(i-59)
		}
	}
	return out
}

// constBars builds bars with a constant 10-point range around a flat close.
func constBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Open: 100, High: 105, Low: 95, Close: 100, Volume: 1e6}
	}
	return bars
}

func wantInvalidParam(t *testing.T, err error, param string) {
	t.Helper()
	var ip *models.ErrInvalidParameter
	if !errors.As(err, &ip) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if ip.Param != param {
		t.Errorf("expected parameter %q, got %q", param, ip.Param)
	}
}

func TestSMA(t *testing.T) {
	vals, err := SMA([]float64{10, 20, 30, 40, 50}, 3)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}
	if len(vals) != 5 {
		t.Fatalf("expected 5 values, got %d", len(vals))
	}
	if !models.IsMissing(vals[0]) || !models.IsMissing(vals[1]) {
		t.Error("expected missing values before the first full window")
	}
	// SMA(3) at index 2 = (10+20+30)/3 = 20.
	if vals[2] != 20 {
		t.Errorf("expected SMA[2]=20, got %.2f", vals[2])
	}
	if vals[4] != 40 {
		t.Errorf("expected SMA[4]=40, got %.2f", vals[4])
	}
}

func TestSMASkipsGappedWindows(t *testing.T) {
	data := []float64{10, 20, models.Missing(), 40, 50, 60}
	vals, err := SMA(data, 2)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}
	if vals[1] != 15 {
		t.Errorf("expected SMA[1]=15, got %.2f", vals[1])
	}
	if !models.IsMissing(vals[2]) || !models.IsMissing(vals[3]) {
		t.Error("expected missing values while the window spans the gap")
	}
	if vals[4] != 45 || vals[5] != 55 {
		t.Errorf("expected recovery to 45, 55 after the gap, got %.2f, %.2f", vals[4], vals[5])
	}
}

func TestEMASeed(t *testing.T) {
	vals, err := EMA([]float64{10, 20, 30, 40, 50, 60}, 5)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	if !models.IsMissing(vals[3]) {
		t.Error("expected missing value before the seed window fills")
	}
	// Seed at index 4 = (10+20+30+40+50)/5 = 30, then 60/3 + 30*2/3 = 40.
	if vals[4] != 30 {
		t.Errorf("expected EMA[4]=30, got %.4f", vals[4])
	}
	if vals[5] != 40 {
		t.Errorf("expected EMA[5]=40, got %.4f", vals[5])
	}
}

func TestEMAReseedsAfterGap(t *testing.T) {
	data := []float64{10, 20, 30, models.Missing(), 50, 60, 70, 80}
	vals, err := EMA(data, 3)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	if vals[2] != 20 {
		t.Errorf("expected EMA[2]=20, got %.4f", vals[2])
	}
	for i := 3; i <= 5; i++ {
		if !models.IsMissing(vals[i]) {
			t.Errorf("expected EMA[%d] missing after the gap, got %.4f", i, vals[i])
		}
	}
	// Re-seed at index 6 = (50+60+70)/3 = 60, then 80/2 + 60/2 = 70.
	if vals[6] != 60 {
		t.Errorf("expected EMA[6]=60 from the re-seed, got %.4f", vals[6])
	}
	if vals[7] != 70 {
		t.Errorf("expected EMA[7]=70, got %.4f", vals[7])
	}
}

func TestRSIExactValues(t *testing.T) {
	vals, err := RSI([]float64{10, 11, 10.5, 11.5}, 2)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if !models.IsMissing(vals[1]) {
		t.Error("expected missing value before the seed completes")
	}
	// Changes +1, -0.5 seed avgGain=0.5, avgLoss=0.25: RSI = 100-100/3.
	if math.Abs(vals[2]-66.666667) > 1e-6 {
		t.Errorf("expected RSI[2]=66.666667, got %.6f", vals[2])
	}
	// Wilder update with gain +1: avgGain=0.75, avgLoss=0.125: RSI = 100-100/7.
	if math.Abs(vals[3]-85.714286) > 1e-6 {
		t.Errorf("expected RSI[3]=85.714286, got %.6f", vals[3])
	}
}

func TestRSITrendExtremes(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + 1.5*float64(i)
		falling[i] = 100 - 1.5*float64(i)
	}
	up, err := RSI(rising, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if !models.IsMissing(up[13]) {
		t.Error("expected missing value before 14 changes accumulate")
	}
	if up[14] != 100 || up[29] != 100 {
		t.Errorf("expected RSI=100 with no losses, got %.2f, %.2f", up[14], up[29])
	}
	down, err := RSI(falling, 14)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if down[14] != 0 {
		t.Errorf("expected RSI=0 with no gains, got %.2f", down[14])
	}
}

func TestMACD(t *testing.T) {
	ms, err := MACD(trendCloses(), 12, 26, 9)
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	if len(ms.Line) != 80 || len(ms.Signal) != 80 || len(ms.Histogram) != 80 {
		t.Fatalf("expected 80 values per column, got %d/%d/%d",
			len(ms.Line), len(ms.Signal), len(ms.Histogram))
	}
	if !models.IsMissing(ms.Line[24]) || models.IsMissing(ms.Line[25]) {
		t.Error("expected MACD line to start once the slow EMA seeds at index 25")
	}
	if !models.IsMissing(ms.Signal[32]) || models.IsMissing(ms.Signal[33]) {
		t.Error("expected signal line to start at index 33")
	}
	// Six bars into the up-leg the fast EMA leads the slow one decisively.
	if ms.Line[45] <= 0 {
		t.Errorf("expected positive MACD line in the up-leg, got %.4f", ms.Line[45])
	}
	if ms.Line[45] <= ms.Signal[45] {
		t.Errorf("expected MACD line above its signal in the up-leg, got %.4f vs %.4f",
			ms.Line[45], ms.Signal[45])
	}
	if diff := ms.Histogram[45] - (ms.Line[45] - ms.Signal[45]); math.Abs(diff) > 1e-12 {
		t.Errorf("histogram should equal line minus signal, off by %g", diff)
	}
}

func TestBollinger(t *testing.T) {
	bs, err := Bollinger([]float64{2, 4, 6, 8, 10}, 3, 2)
	if err != nil {
		t.Fatalf("Bollinger: %v", err)
	}
	if !models.IsMissing(bs.Middle[1]) {
		t.Error("expected missing bands before the first full window")
	}
	// Window {2,4,6}: mean 4, population stddev sqrt(8/3).
	if bs.Middle[2] != 4 {
		t.Errorf("expected Middle[2]=4, got %.4f", bs.Middle[2])
	}
	if math.Abs(bs.Upper[2]-7.265986) > 1e-6 {
		t.Errorf("expected Upper[2]=7.265986, got %.6f", bs.Upper[2])
	}
	if math.Abs(bs.Lower[2]-0.734014) > 1e-6 {
		t.Errorf("expected Lower[2]=0.734014, got %.6f", bs.Lower[2])
	}
	if bs.Upper[4] <= bs.Middle[4] || bs.Middle[4] <= bs.Lower[4] {
		t.Errorf("invalid band ordering: upper=%.2f, middle=%.2f, lower=%.2f",
			bs.Upper[4], bs.Middle[4], bs.Lower[4])
	}
}

func TestATR(t *testing.T) {
	vals, err := ATR(constBars(20), 14)
	if err != nil {
		t.Fatalf("ATR: %v", err)
	}
	if !models.IsMissing(vals[13]) {
		t.Error("expected missing value before 14 true ranges accumulate")
	}
	// Constant 10-point true range seeds and stays at 10.
	if vals[14] != 10 || vals[19] != 10 {
		t.Errorf("expected ATR=10 on constant ranges, got %.2f, %.2f", vals[14], vals[19])
	}
}

func TestATRReseedsAfterGap(t *testing.T) {
	bars := constBars(25)
	bars[7].High = models.Missing()
	vals, err := ATR(bars, 14)
	if err != nil {
		t.Fatalf("ATR: %v", err)
	}
	if !models.IsMissing(vals[20]) {
		t.Error("expected missing value until 14 clean ranges follow the gap")
	}
	if vals[21] != 10 || vals[24] != 10 {
		t.Errorf("expected ATR=10 after the re-seed, got %.2f, %.2f", vals[21], vals[24])
	}
}

func TestInvalidPeriods(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	if _, err := SMA(data, 0); err == nil {
		t.Error("expected error for period 0")
	} else {
		wantInvalidParam(t, err, "period")
	}
	if _, err := SMA(data, 5); err == nil {
		t.Error("expected error for period equal to the input length")
	} else {
		wantInvalidParam(t, err, "period")
	}
	var empty *models.ErrEmptyInput
	if _, err := SMA(nil, 3); !errors.As(err, &empty) {
		t.Errorf("expected ErrEmptyInput for empty history, got %v", err)
	}
	if _, err := RSI(data, 9); err == nil {
		t.Error("expected error for RSI period beyond the input")
	}
	if _, err := Bollinger(data, 3, 0); err == nil {
		t.Error("expected error for zero band width")
	} else {
		wantInvalidParam(t, err, "width")
	}
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	if _, err := MACD(closes, 26, 12, 9); err == nil {
		t.Error("expected error when the fast period exceeds the slow one")
	} else {
		wantInvalidParam(t, err, "fast period")
	}
	if _, err := ATR(constBars(10), 10); err == nil {
		t.Error("expected error for ATR period equal to the bar count")
	}
}

// --- signal tests ---

func TestMACrossoverSignal(t *testing.T) {
	closes := []float64{10, 10, 10, 20, 20, 5, 5}
	sig, err := MACrossoverSignal(closes, 2, 3)
	if err != nil {
		t.Fatalf("MACrossoverSignal: %v", err)
	}
	if !models.IsMissing(sig[0]) || !models.IsMissing(sig[1]) {
		t.Error("expected missing positions before the long SMA warms up")
	}
	want := []float64{Short, Long, Long, Short, Short}
	for i, w := range want {
		if got := sig[i+2]; got != w {
			t.Errorf("position[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestBollingerReversionSignal(t *testing.T) {
	closes := []float64{10, 10, 10, 20, 10, 0}
	sig, err := BollingerReversionSignal(closes, 3, 1)
	if err != nil {
		t.Fatalf("BollingerReversionSignal: %v", err)
	}
	if !models.IsMissing(sig[1]) {
		t.Error("expected missing position before the bands warm up")
	}
	want := []float64{Flat, Short, Flat, Long}
	for i, w := range want {
		if got := sig[i+2]; got != w {
			t.Errorf("position[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestBreakoutSignal(t *testing.T) {
	bars := []models.Bar{
		{Open: 10, High: 12, Low: 8, Close: 10},
		{Open: 10, High: 13, Low: 9, Close: 11},
		{Open: 11, High: 20, Low: 10, Close: 18}, // clears prior high 13
		{Open: 18, High: 19, Low: 5, Close: 6},   // falls through prior low 9
		{Open: 6, High: 15, Low: 10, Close: 12},  // inside the 5..20 channel
	}
	sig, err := BreakoutSignal(bars, 2)
	if err != nil {
		t.Fatalf("BreakoutSignal: %v", err)
	}
	if !models.IsMissing(sig[0]) || !models.IsMissing(sig[1]) {
		t.Error("expected missing positions before a full prior window exists")
	}
	want := []float64{Long, Short, Flat}
	for i, w := range want {
		if got := sig[i+2]; got != w {
			t.Errorf("position[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestMACDCrossoverSignal(t *testing.T) {
	sig, err := MACDCrossoverSignal(trendCloses())
	if err != nil {
		t.Fatalf("MACDCrossoverSignal: %v", err)
	}
	if !models.IsMissing(sig[32]) {
		t.Error("expected missing position before the signal line warms up")
	}
	if models.IsMissing(sig[33]) {
		t.Error("expected a position once the signal line exists")
	}
	if sig[45] != Long {
		t.Errorf("expected long position in the up-leg, got %v", sig[45])
	}
	if sig[79] != Short {
		t.Errorf("expected short position in the down-leg, got %v", sig[79])
	}
}

func TestMomentumSignal(t *testing.T) {
	sig, err := MomentumSignal([]float64{10, 11, 12, 11, 9}, []int{1, 2})
	if err != nil {
		t.Fatalf("MomentumSignal: %v", err)
	}
	if !models.IsMissing(sig[1]) {
		t.Error("expected missing position before the longest window fills")
	}
	want := []float64{Long, Flat, Flat}
	for i, w := range want {
		if got := sig[i+2]; got != w {
			t.Errorf("position[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestMomentumSignalZeroBase(t *testing.T) {
	sig, err := MomentumSignal([]float64{0, 10, 20}, []int{1})
	if err != nil {
		t.Fatalf("MomentumSignal: %v", err)
	}
	if !models.IsMissing(sig[1]) {
		t.Error("expected missing position over a zero base price")
	}
	if sig[2] != Long {
		t.Errorf("expected long position, got %v", sig[2])
	}
}

func TestSignalParameterErrors(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if _, err := MACrossoverSignal(closes, 3, 2); err == nil {
		t.Error("expected error when the short period exceeds the long one")
	} else {
		wantInvalidParam(t, err, "short period")
	}
	var empty *models.ErrEmptyInput
	if _, err := MomentumSignal(closes, nil); !errors.As(err, &empty) {
		t.Errorf("expected ErrEmptyInput for no momentum windows, got %v", err)
	}
	if _, err := MomentumSignal(closes, []int{0}); err == nil {
		t.Error("expected error for a zero momentum window")
	} else {
		wantInvalidParam(t, err, "window")
	}
	if _, err := BreakoutSignal(constBars(10), 10); err == nil {
		t.Error("expected error for a breakout window equal to the bar count")
	}
}
