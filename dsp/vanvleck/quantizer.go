package vanvleck

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Solver limits.
const (
	maxThreshold = 40.0
	maxBias      = 5.0
	bisectSteps  = 200
)

// Quantizer models an equi-spaced n-level digitizer with thresholds at
// ±(2k-1)t, k = 1..(n-1)/2, acting on unit-variance Gaussian input with DC
// offset b. Output levels are multiples of Step.
type Quantizer struct {
	Levels int
	Step   float64
	// Optimum is the threshold that minimizes the quantization loss; the
	// corrected lags are scaled by (Optimum/t)^2.
	Optimum float64
}

// NewQuantizer returns the model for 3- or 9-level sampling.
func NewQuantizer(level int) (Quantizer, error) {
	switch level {
	case 3:
		return Quantizer{Levels: 3, Step: 1, Optimum: 0.612003181}, nil
	case 9:
		return Quantizer{Levels: 9, Step: 2, Optimum: 0.266911104}, nil
	}
	return Quantizer{}, fmt.Errorf("%w: %d", ErrUnsupportedLevel, level)
}

// MaxZeroLag returns the largest possible zero lag, reached as t -> 0.
func (q Quantizer) MaxZeroLag() float64 {
	h := float64((q.Levels - 1) / 2)
	return q.Step * q.Step * h * h
}

func (q Quantizer) halfLevels() int {
	return (q.Levels - 1) / 2
}

// Mean returns E[q(x)] for threshold t and bias b.
func (q Quantizer) Mean(t, b float64) float64 {
	var s float64
	for k := 1; k <= q.halfLevels(); k++ {
		tk := float64(2*k-1) * t
		s += distuv.UnitNormal.Survival(tk-b) - distuv.UnitNormal.CDF(-tk-b)
	}
	return q.Step * s
}

// Power returns E[q(x)^2] for threshold t and bias b, the expected zero lag.
func (q Quantizer) Power(t, b float64) float64 {
	var s float64
	for k := 1; k <= q.halfLevels(); k++ {
		tk := float64(2*k-1) * t
		s += float64(2*k-1) * (distuv.UnitNormal.Survival(tk-b) + distuv.UnitNormal.CDF(-tk-b))
	}
	return q.Step * q.Step * s
}

// Threshold solves Power(t, b) = zeroLag for t. It reports false when the
// zero lag is outside (0, MaxZeroLag).
func (q Quantizer) Threshold(zeroLag, b float64) (float64, bool) {
	if !(zeroLag > 0) || zeroLag >= q.MaxZeroLag() {
		return 0, false
	}
	if q.Levels == 3 && b == 0 {
		return math.Sqrt2 * math.Erfcinv(zeroLag), true
	}

	// Power decreases monotonically in t.
	lo, hi := 0.0, maxThreshold
	for range bisectSteps {
		mid := 0.5 * (lo + hi)
		if q.Power(mid, b) > zeroLag {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-14 {
			break
		}
	}
	return 0.5 * (lo + hi), true
}

// Bias finds the threshold and DC bias consistent with zeroLag and with the
// mean of the lags far from zero, which approaches Mean(t, b)^2. It reports
// false when no bias in [0, 5] reproduces both.
func (q Quantizer) Bias(zeroLag, tailMean float64) (t, b float64, ok bool) {
	if tailMean < 0 {
		return 0, 0, false
	}
	if tailMean == 0 {
		t, ok = q.Threshold(zeroLag, 0)
		return t, 0, ok
	}

	target := math.Sqrt(tailMean)
	excess := func(b float64) (float64, float64, bool) {
		t, ok := q.Threshold(zeroLag, b)
		if !ok {
			return 0, 0, false
		}
		return q.Mean(t, b) - target, t, true
	}

	hiVal, _, ok := excess(maxBias)
	if !ok || hiVal < 0 {
		return 0, 0, false
	}

	lo, hi := 0.0, maxBias
	for range bisectSteps {
		mid := 0.5 * (lo + hi)
		v, _, ok := excess(mid)
		if !ok {
			return 0, 0, false
		}
		if v < 0 {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-12 {
			break
		}
	}
	b = 0.5 * (lo + hi)
	t, ok = q.Threshold(zeroLag, b)
	return t, b, ok
}
