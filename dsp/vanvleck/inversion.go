package vanvleck

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/interp"
)

const (
	// DefaultTableSize is the default number of points of an inversion table.
	DefaultTableSize = 65
	minTableSize     = 5
	// quadraturePoints per table segment.
	quadraturePoints = 16
)

// Sampler is the threshold and DC bias of one side of a correlation.
type Sampler struct {
	Threshold float64
	Bias      float64
}

// Inversion maps a measured quantized correlation back to the correlation
// coefficient of the unquantized inputs.
type Inversion struct {
	measured []float64
	rho      []float64
	fit      interp.Predictor
}

// NewInversion tabulates the quantized correlation of two samplers over
// size points and prepares its inverse.
//
// The correlation follows from Price's theorem: its derivative in rho is a
// sum of bivariate normal densities at the threshold pairs. With rho =
// sin(theta) the 1/sqrt(1-rho^2) singularity cancels, so the integrand is
// smooth on [-pi/2, pi/2] and fixed Gauss-Legendre rules integrate it well.
func NewInversion(q Quantizer, a, b Sampler, size int) (*Inversion, error) {
	if size < minTableSize {
		size = minTableSize
	}
	if size%2 == 0 {
		size++
	}
	if !(a.Threshold > 0) || !(b.Threshold > 0) {
		return nil, fmt.Errorf("%w: thresholds %v, %v", errTable, a.Threshold, b.Threshold)
	}

	ua := offsets(q, a)
	ub := offsets(q, b)
	scale := q.Step * q.Step / (2 * math.Pi)
	density := func(theta float64) float64 {
		rho, c := math.Sincos(theta)
		c2 := 2 * c * c
		var s float64
		for _, u := range ua {
			for _, v := range ub {
				s += math.Exp(-(u*u - 2*rho*u*v + v*v) / c2)
			}
		}
		return scale * s
	}

	mid := size / 2
	width := math.Pi / float64(size-1)
	measured := make([]float64, size)
	rho := make([]float64, size)
	measured[mid] = q.Mean(a.Threshold, a.Bias) * q.Mean(b.Threshold, b.Bias)
	for k := 1; k <= mid; k++ {
		lo, hi := float64(k-1)*width, float64(k)*width
		measured[mid+k] = measured[mid+k-1] + quad.Fixed(density, lo, hi, quadraturePoints, quad.Legendre{}, 0)
		measured[mid-k] = measured[mid-k+1] - quad.Fixed(density, -hi, -lo, quadraturePoints, quad.Legendre{}, 0)
	}
	for k := range rho {
		rho[k] = math.Sin(float64(k-mid) * width)
	}

	inv := &Inversion{}
	for k := range measured {
		if n := len(inv.measured); n > 0 && measured[k] <= inv.measured[n-1] {
			continue
		}
		inv.measured = append(inv.measured, measured[k])
		inv.rho = append(inv.rho, rho[k])
	}
	if len(inv.measured) < 2 {
		return nil, fmt.Errorf("%w: degenerate correlation curve", errTable)
	}

	var fb interp.FritschButland
	if err := fb.Fit(inv.measured, inv.rho); err == nil {
		inv.fit = &fb
		return inv, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(inv.measured, inv.rho); err != nil {
		return nil, fmt.Errorf("%w: %v", errTable, err)
	}
	inv.fit = &pl
	return inv, nil
}

// offsets returns the standardized threshold positions ±(2k-1)t - b.
func offsets(q Quantizer, s Sampler) []float64 {
	h := q.halfLevels()
	out := make([]float64, 0, 2*h)
	for k := 1; k <= h; k++ {
		tk := float64(2*k-1) * s.Threshold
		out = append(out, tk-s.Bias, -tk-s.Bias)
	}
	return out
}

// Rho returns the unquantized correlation for a measured value. Values
// outside the table are clamped to its ends.
func (inv *Inversion) Rho(measured float64) float64 {
	first, last := inv.measured[0], inv.measured[len(inv.measured)-1]
	switch {
	case math.IsNaN(measured):
		return measured
	case measured <= first:
		return inv.rho[0]
	case measured >= last:
		return inv.rho[len(inv.rho)-1]
	}
	return inv.fit.Predict(measured)
}

// Range returns the measurable correlation interval.
func (inv *Inversion) Range() (lo, hi float64) {
	return inv.measured[0], inv.measured[len(inv.measured)-1]
}
