package stats

import (
	"math"
	"sort"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Summary is the distribution summary of a sample.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Describe summarizes a sample, skipping missing values. StdDev is the
// sample estimator (n-1); skewness is the adjusted Fisher-Pearson
// estimator, defined for n >= 3; kurtosis is the sample excess estimator,
// defined for n >= 4.
func Describe(values []float64) Summary {
	clean := dropMissing(values)
	s := Summary{
		Count:    len(clean),
		Mean:     models.Missing(),
		Median:   models.Missing(),
		StdDev:   models.Missing(),
		Skewness: models.Missing(),
		Kurtosis: models.Missing(),
		Min:      models.Missing(),
		Max:      models.Missing(),
	}
	if len(clean) == 0 {
		return s
	}

	s.Mean = mean(clean)
	s.Median = median(clean)
	s.Min, s.Max = clean[0], clean[0]
	for _, v := range clean {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	if len(clean) >= 2 {
		s.StdDev = sampleStdDev(clean)
	}
	s.Skewness = sampleSkewness(clean)
	s.Kurtosis = sampleKurtosis(clean)
	return s
}

// --- estimators ---

func sampleSkewness(vals []float64) float64 {
	n := float64(len(vals))
	if n < 3 {
		return models.Missing()
	}
	m, sd := mean(vals), sampleStdDev(vals)
	if sd == 0 {
		return models.Missing()
	}
	sum := 0.0
	for _, v := range vals {
		z := (v - m) / sd
		sum += z * z * z
	}
	return n / ((n - 1) * (n - 2)) * sum
}

func sampleKurtosis(vals []float64) float64 {
	n := float64(len(vals))
	if n < 4 {
		return models.Missing()
	}
	m, sd := mean(vals), sampleStdDev(vals)
	if sd == 0 {
		return models.Missing()
	}
	sum := 0.0
	for _, v := range vals {
		z := (v - m) / sd
		sum += z * z * z * z
	}
	return n*(n+1)/((n-1)*(n-2)*(n-3))*sum - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// --- helpers ---

func dropMissing(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if models.IsMissing(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func anyMissing(vals []float64) bool {
	for _, v := range vals {
		if models.IsMissing(v) {
			return true
		}
	}
	return false
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

func sampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return models.Missing()
	}
	m := mean(vals)
	sumSq := 0.0
	for _, v := range vals {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}
