package spectrum

import (
	"fmt"
	"math/bits"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-acs/dsp/buffer"
)

// Symmetrize fills dst (length 2*len(lags)) with the even extension of lags:
// dst[0:L] = lags, dst[2L-j] = lags[j] for j in [1,L), and the fold sample
// dst[L] = edgeWeight*lags[L-2] + lags[L-1].
func Symmetrize(dst, lags []float64, edgeWeight float64) error {
	nlags := len(lags)
	if nlags == 0 {
		return errEmptyLags
	}
	if len(dst) != 2*nlags {
		return errMismatchedLength
	}

	copy(dst, lags)
	for j := 1; j < nlags; j++ {
		dst[2*nlags-j] = lags[j]
	}

	dst[nlags] = lags[nlags-1]
	if nlags >= 2 {
		dst[nlags] += edgeWeight * lags[nlags-2]
	}

	return nil
}

// minPlanSize is the smallest transform length handed to algo-fft.
const minPlanSize = 16

// Transformer turns lag vectors into spectra. FFT plans and scratch space are
// cached per size: power-of-two sizes from minPlanSize up run on algo-fft
// plans, everything else on a gonum real FFT.
//
// A Transformer is not safe for concurrent use.
type Transformer struct {
	plans  map[int]*algofft.Plan[complex128]
	reals  map[int]*fourier.FFT
	folded *buffer.Buffer
	in     []complex128
	out    []complex128
}

// NewTransformer returns an empty Transformer.
func NewTransformer() *Transformer {
	return &Transformer{
		plans:  make(map[int]*algofft.Plan[complex128]),
		reals:  make(map[int]*fourier.FFT),
		folded: buffer.New(0),
	}
}

// Transform replaces lags in place with the L-channel spectrum and returns
// the zero-channel value |X[0]|.
func (t *Transformer) Transform(lags []float64, edgeWeight float64) (float64, error) {
	nlags := len(lags)
	if nlags == 0 {
		return 0, errEmptyLags
	}

	t.folded.Resize(2 * nlags)
	seq := t.folded.Samples()
	if err := Symmetrize(seq, lags, edgeWeight); err != nil {
		return 0, err
	}

	coeffs, err := t.forward(seq)
	if err != nil {
		return 0, err
	}

	dc := cmplx.Abs(coeffs[0])
	for k := 1; k <= nlags; k++ {
		lags[k-1] = real(coeffs[k])
	}

	return dc, nil
}

// TransformAll transforms every spectrum of m whose skip flag is not set and
// stores its zero-channel value in zero. skip may be nil.
func (t *Transformer) TransformAll(m [][]float64, zero []float64, edgeWeight float64, skip []bool) error {
	for i, lags := range m {
		if skip != nil && skip[i] {
			continue
		}
		dc, err := t.Transform(lags, edgeWeight)
		if err != nil {
			return fmt.Errorf("spectrum: spectrum %d: %w", i, err)
		}
		zero[i] = dc
	}
	return nil
}

// forward returns the first n/2+1 coefficients of the forward DFT of seq.
func (t *Transformer) forward(seq []float64) ([]complex128, error) {
	n := len(seq)
	half := n/2 + 1

	if n < minPlanSize || !isPowerOfTwo(n) {
		fft, ok := t.reals[n]
		if !ok {
			fft = fourier.NewFFT(n)
			t.reals[n] = fft
		}
		if cap(t.out) < half {
			t.out = make([]complex128, half)
		}
		return fft.Coefficients(t.out[:half], seq), nil
	}

	plan, ok := t.plans[n]
	if !ok {
		var err error
		plan, err = algofft.NewPlan64(n)
		if err != nil {
			return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
		}
		t.plans[n] = plan
	}

	if cap(t.in) < n {
		t.in = make([]complex128, n)
	}
	if cap(t.out) < n {
		t.out = make([]complex128, n)
	}
	in, out := t.in[:n], t.out[:n]
	for i, v := range seq {
		in[i] = complex(v, 0)
	}

	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	return out[:half], nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}
