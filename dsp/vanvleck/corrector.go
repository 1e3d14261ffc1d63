package vanvleck

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// truncationUnit is the lag quantum of the correlator accumulators.
	truncationUnit = 0.5 / 65536
	// nineLevelScale converts stored 9-level lags to quantizer units.
	nineLevelScale = 16
	// tailFraction of the lags is averaged to estimate the DC term.
	tailFraction = 0.05
)

// Pairing names the inputs of each spectrum. Keys returns the per-phase
// keys of both sides; a == b marks an autocorrelation.
type Pairing interface {
	Keys(spectrum int) (a, b string)
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithModel selects the correction model.
func WithModel(m Model) Option {
	return func(c *Corrector) { c.model = m }
}

// WithTableSize sets the number of points in Schwab inversion tables.
func WithTableSize(n int) Option {
	return func(c *Corrector) {
		if n > 0 {
			c.tableSize = n
		}
	}
}

// WithDCBias configures the Schwab bias handling. With useDCBias set, or
// with dcBias zero and minBiasFactor non-negative, the bias is estimated
// from the lag tail; otherwise dcBias is used as given. A non-negative
// minBiasFactor adds at least that many truncation units to every lag
// before the estimate.
func WithDCBias(useDCBias bool, dcBias float64, minBiasFactor int) Option {
	return func(c *Corrector) {
		c.useDCBias = useDCBias
		c.dcBias = dcBias
		c.minBiasFactor = minBiasFactor
	}
}

// WithLogger sets the logger for non-fatal correction problems.
func WithLogger(l *slog.Logger) Option {
	return func(c *Corrector) {
		if l != nil {
			c.logger = l
		}
	}
}

// Corrector applies the configured quantization correction to lag matrices.
type Corrector struct {
	model         Model
	tableSize     int
	useDCBias     bool
	dcBias        float64
	minBiasFactor int
	logger        *slog.Logger
}

// NewCorrector returns a Schwab corrector with 65-point tables, tail bias
// estimation disabled and zero bias, modified by opts.
func NewCorrector(opts ...Option) *Corrector {
	c := &Corrector{
		model:         Schwab,
		tableSize:     DefaultTableSize,
		minBiasFactor: -1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Model returns the configured model.
func (c *Corrector) Model() Model { return c.model }

// Result reports what Correct did.
type Result struct {
	// Scale is the factor applied to each spectrum after normalization;
	// 1 for spectra left uncorrected.
	Scale []float64
	// Corrected marks spectra that went through the correction.
	Corrected []bool
	// Samplers holds the Schwab threshold and bias per autocorrelation key.
	Samplers map[string]Sampler
	// BiasFailures counts autocorrelations whose bias solve failed.
	BiasFailures int
}

func newResult(n int) Result {
	r := Result{
		Scale:     make([]float64, n),
		Corrected: make([]bool, n),
	}
	for i := range r.Scale {
		r.Scale[i] = 1
	}
	return r
}

// Correct corrects m[spectrum][lag] in place. Spectra flagged in badZeroLag
// are left unchanged and never contribute sampler statistics. pairing is
// only consulted by the Schwab model and may be nil otherwise.
func (c *Corrector) Correct(m [][]float64, level int, badZeroLag []bool, pairing Pairing) (Result, error) {
	if len(badZeroLag) != len(m) {
		return Result{}, fmt.Errorf("%w: %d spectra, %d flags", ErrShape, len(m), len(badZeroLag))
	}
	res := newResult(len(m))

	switch c.model {
	case NoVanVleck:
		return res, nil
	case PowerLevel:
		return res, c.powerLevel(m, level, badZeroLag, &res)
	case Schwab:
		if pairing == nil {
			return res, fmt.Errorf("vanvleck: Schwab correction needs a pairing")
		}
		return res, c.schwab(m, level, badZeroLag, pairing, &res)
	}
	return res, fmt.Errorf("%w: %v", errUnknownModel, c.model)
}

func (c *Corrector) powerLevel(m [][]float64, level int, bad []bool, res *Result) error {
	if level != 3 && level != 9 {
		return fmt.Errorf("%w: %d", ErrUnsupportedLevel, level)
	}
	for i, lags := range m {
		// Cross-correlation zero lags may be non-positive without being
		// flagged; the polynomials are undefined there.
		if bad[i] || len(lags) == 0 || !(lags[0] > 0) {
			continue
		}
		scale := PowerScale(level, lags[0])
		Normalize(level, lags)
		vecmath.ScaleBlock(lags, lags, scale)
		res.Scale[i] = scale
		res.Corrected[i] = true
	}
	return nil
}

type autoInfo struct {
	sampler Sampler
	bad     bool
}

func (c *Corrector) schwab(m [][]float64, level int, bad []bool, pairing Pairing, res *Result) error {
	q, err := NewQuantizer(level)
	if err != nil {
		return err
	}

	prescale := level == 9
	if prescale {
		for _, lags := range m {
			floats.Scale(nineLevelScale, lags)
		}
	}
	restore := func(lags []float64) {
		if prescale {
			floats.Scale(1.0/nineLevelScale, lags)
		}
	}

	res.Samplers = make(map[string]Sampler)
	autos := make(map[string]autoInfo)

	for i, lags := range m {
		a, b := pairing.Keys(i)
		if a != b {
			continue
		}
		if bad[i] || len(lags) == 0 {
			restore(lags)
			autos[a] = autoInfo{bad: true}
			continue
		}

		s, ok := c.estimate(q, lags, a, res)
		if !ok {
			restore(lags)
			autos[a] = autoInfo{bad: true}
			continue
		}
		if !c.invert(q, lags, s, s, true, i, res) {
			restore(lags)
			autos[a] = autoInfo{bad: true}
			continue
		}
		autos[a] = autoInfo{sampler: s}
		res.Samplers[a] = s
	}

	for i, lags := range m {
		a, b := pairing.Keys(i)
		if a == b {
			continue
		}
		ia, okA := autos[a]
		ib, okB := autos[b]
		if !okA || !okB || ia.bad || ib.bad || len(lags) == 0 {
			restore(lags)
			continue
		}
		if !c.invert(q, lags, ia.sampler, ib.sampler, false, i, res) {
			restore(lags)
		}
	}
	return nil
}

// estimate derives the threshold and bias of an autocorrelation. The lags
// may be offset by the minimum bias factor.
func (c *Corrector) estimate(q Quantizer, lags []float64, key string, res *Result) (Sampler, bool) {
	if !c.useDCBias && (c.dcBias != 0 || c.minBiasFactor < 0) {
		t, ok := q.Threshold(lags[0], c.dcBias)
		if !ok {
			c.logger.Warn("zero lag outside the quantizer range, lags left uncorrected",
				"key", key, "zerolag", lags[0])
			return Sampler{}, false
		}
		return Sampler{Threshold: t, Bias: c.dcBias}, true
	}

	tail := tailMean(lags)
	if c.minBiasFactor >= 0 {
		factor := float64(c.minBiasFactor)
		if tail < 0 {
			factor = math.Max(factor, math.Ceil(-tail/truncationUnit))
		}
		if factor > 0 {
			floats.AddConst(factor*truncationUnit, lags)
			tail = tailMean(lags)
		}
	}

	t, bias, ok := q.Bias(lags[0], tail)
	if ok {
		return Sampler{Threshold: t, Bias: bias}, true
	}
	res.BiasFailures++
	c.logger.Error("The zerolag and bias at large lags are incompatible - default to 0.0 bias in vanVleck correction",
		"key", key, "zerolag", lags[0], "tail", tail)
	t, ok = q.Threshold(lags[0], 0)
	if !ok {
		return Sampler{}, false
	}
	return Sampler{Threshold: t}, true
}

// invert replaces lags by the corrected correlation scaled to power units.
func (c *Corrector) invert(q Quantizer, lags []float64, a, b Sampler, auto bool, spectrum int, res *Result) bool {
	inv, err := NewInversion(q, a, b, c.tableSize)
	if err != nil {
		c.logger.Warn("lags left uncorrected", "spectrum", spectrum, "error", err)
		return false
	}
	for i, v := range lags {
		lags[i] = inv.Rho(v)
	}
	if auto {
		lags[0] = 1
	}

	scale := q.Optimum / math.Sqrt(a.Threshold*b.Threshold)
	scale *= scale
	floats.Scale(scale, lags)
	res.Scale[spectrum] = scale
	res.Corrected[spectrum] = true
	return true
}

func tailMean(lags []float64) float64 {
	n := max(1, int(float64(len(lags))*tailFraction))
	return stat.Mean(lags[len(lags)-n:], nil)
}

// MaxRawZeroLag is the largest valid stored zero lag for a level.
func MaxRawZeroLag(level int) float64 {
	v := float64(level-1) * float64(level-1)
	if level == 9 {
		v /= nineLevelScale
	}
	return v
}

// BadZeroLag reports whether a stored zero lag cannot be corrected.
func BadZeroLag(level int, zeroLag float64) bool {
	return !(zeroLag > 0) || zeroLag > MaxRawZeroLag(level)
}
