// Package running provides sum-based window statistics that support removing
// samples, as needed for sliding-window outlier tests over lag vectors.
package running

import "math"

// Accumulator tracks count, sum and sum of squares of a sample window.
// The zero value is an empty window.
type Accumulator struct {
	n     float64
	sum   float64
	sumSq float64
}

// Of returns an Accumulator over all values of the given segments.
func Of(segments ...[]float64) Accumulator {
	var a Accumulator
	for _, s := range segments {
		a.AddSlice(s)
	}
	return a
}

// Add inserts x into the window.
func (a *Accumulator) Add(x float64) {
	a.n++
	a.sum += x
	a.sumSq += x * x
}

// Remove takes x out of the window. x must have been added before.
func (a *Accumulator) Remove(x float64) {
	a.n--
	a.sum -= x
	a.sumSq -= x * x
}

// AddSlice inserts every value of xs.
func (a *Accumulator) AddSlice(xs []float64) {
	for _, x := range xs {
		a.Add(x)
	}
}

// Merge adds the contents of b to a.
func (a *Accumulator) Merge(b Accumulator) {
	a.n += b.n
	a.sum += b.sum
	a.sumSq += b.sumSq
}

// N returns the number of samples in the window.
func (a Accumulator) N() int {
	return int(a.n)
}

// Mean returns the window mean, or 0 for an empty window.
func (a Accumulator) Mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / a.n
}

// StdDev returns the sample standard deviation (n-1 denominator). Windows
// with fewer than two samples, and negative variances from rounding, give 0.
func (a Accumulator) StdDev() float64 {
	if a.n < 2 {
		return 0
	}
	v := (a.sumSq - a.sum*a.sum/a.n) / (a.n - 1)
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Deviates reports whether |x - mean| exceeds sigmaFactor standard
// deviations of the window.
func (a Accumulator) Deviates(x, sigmaFactor float64) bool {
	return math.Abs(x-a.Mean()) > sigmaFactor*a.StdDev()
}
