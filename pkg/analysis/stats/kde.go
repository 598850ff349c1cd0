package stats

import (
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Density is a kernel density estimate evaluated on an even grid.
type Density struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`

	Bandwidth float64 `json:"bandwidth"`
}

// KDE estimates the distribution of values with a Gaussian kernel evaluated
// at points evenly spaced over [min, max]. The bandwidth follows Scott's
// rule. Missing values are skipped; fewer than two distinct finite values
// cannot support an estimate.
func KDE(values []float64, points int) (*Density, error) {
	if points < 2 {
		return nil, &models.ErrInvalidParameter{Param: "points", Value: float64(points), Reason: "must be at least 2"}
	}

	clean := dropMissing(values)
	if len(clean) < 2 {
		return nil, &models.ErrEmptyInput{What: "sample for density estimation"}
	}
	lo, hi := clean[0], clean[0]
	for _, v := range clean {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return nil, &models.ErrEmptyInput{What: "sample with distinct values for density estimation"}
	}

	n := float64(len(clean))
	bw := sampleStdDev(clean) * math.Pow(n, -0.2)

	d := &Density{
		X:         make([]float64, points),
		Y:         make([]float64, points),
		Bandwidth: bw,
	}
	step := (hi - lo) / float64(points-1)
	norm := n * bw * math.Sqrt(2*math.Pi)
	for i := 0; i < points; i++ {
		x := lo + step*float64(i)
		sum := 0.0
		for _, v := range clean {
			z := (x - v) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		d.X[i] = x
		d.Y[i] = sum / norm
	}
	return d, nil
}
