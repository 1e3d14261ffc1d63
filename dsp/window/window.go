// Package window provides the raised-cosine lag windows used to smooth
// correlator lag vectors before they are transformed into spectra.
//
// A lag vector of length L is the positive half of a symmetric correlation
// function, so the window applied to it is the right half of a periodic
// window of length 2L: w[i] = b + a*cos(pi*i/L).
package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a smoothing window.
type Type int

const (
	TypeNone Type = iota
	TypeHanning
	TypeHamming
)

var (
	hanningCoeffs = []float64{0.5, -0.5}
	hammingCoeffs = []float64{0.54, -0.46}
)

// String returns the configuration name of the window.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeHanning:
		return "hanning"
	case TypeHamming:
		return "hamming"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a configuration name to a Type. Matching is case-insensitive
// and accepts "hann" as an alias of "hanning".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "uniform":
		return TypeNone, nil
	case "hanning", "hann":
		return TypeHanning, nil
	case "hamming":
		return TypeHamming, nil
	default:
		return TypeNone, fmt.Errorf("%w: %q", errUnknownType, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Coefficients returns the raised-cosine parameters (a, b) of the window,
// w = b + a*cos(.). ok is false for TypeNone.
func (t Type) Coefficients() (a, b float64, ok bool) {
	c := t.cosineCoeffs()
	if c == nil {
		return 0, 0, false
	}
	return -c[1], c[0], true
}

// EdgeWeight is b-a for a raised-cosine window and 0 otherwise. The spectral
// transform uses it to fill the sample at the fold of the symmetrized lags.
func (t Type) EdgeWeight() float64 {
	a, b, ok := t.Coefficients()
	if !ok {
		return 0
	}
	return b - a
}

func (t Type) cosineCoeffs() []float64 {
	switch t {
	case TypeHanning:
		return hanningCoeffs
	case TypeHamming:
		return hammingCoeffs
	default:
		return nil
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length. TypeNone yields
// all ones.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	coeffs := t.cosineCoeffs()
	for i := range out {
		if coeffs == nil {
			out[i] = 1
			continue
		}
		out[i] = cosineFromCoeffs(samplePosition(i, length, cfg.periodic), coeffs)
	}

	return out
}

// LagKernel returns the lag-domain window for nlags lags: the second half of
// the periodic window of length 2*nlags.
func LagKernel(t Type, nlags int) ([]float64, error) {
	if err := validateLength(nlags); err != nil {
		return nil, err
	}

	full := Generate(t, 2*nlags, WithPeriodic())
	return full[nlags:], nil
}

// Smoother applies a lag window to lag vectors. The kernel is cached and
// only rebuilt when the lag count changes.
//
// A Smoother is not safe for concurrent use.
type Smoother struct {
	typ    Type
	kernel []float64
}

// NewSmoother returns a Smoother for the given window type.
func NewSmoother(t Type) *Smoother {
	return &Smoother{typ: t}
}

// Type returns the configured window type.
func (s *Smoother) Type() Type { return s.typ }

// EdgeWeight returns the fold weight for the spectral transform.
func (s *Smoother) EdgeWeight() float64 { return s.typ.EdgeWeight() }

// Kernel returns the cached kernel for nlags lags. It returns nil for
// TypeNone or a non-positive lag count.
func (s *Smoother) Kernel(nlags int) []float64 {
	if s.typ == TypeNone || nlags <= 0 {
		return nil
	}
	if len(s.kernel) != nlags {
		k, err := LagKernel(s.typ, nlags)
		if err != nil {
			return nil
		}
		s.kernel = k
	}
	return s.kernel
}

// Apply multiplies lags in place by the window.
func (s *Smoother) Apply(lags []float64) {
	k := s.Kernel(len(lags))
	if k == nil {
		return
	}
	vecmath.MulBlockInPlace(lags, k)
}

// ApplyAll smooths every spectrum of m whose skip flag is not set. skip may
// be nil.
func (s *Smoother) ApplyAll(m [][]float64, skip []bool) {
	if s.typ == TypeNone {
		return
	}
	for i, lags := range m {
		if skip != nil && skip[i] {
			continue
		}
		s.Apply(lags)
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
