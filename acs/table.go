package acs

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cwbudde/algo-acs/acs/badlags"
	"github.com/cwbudde/algo-acs/acs/sampler"
	"github.com/cwbudde/algo-acs/config"
	"github.com/cwbudde/algo-acs/dsp/anomaly"
	"github.com/cwbudde/algo-acs/dsp/buffer"
	"github.com/cwbudde/algo-acs/dsp/spectrum"
	"github.com/cwbudde/algo-acs/dsp/vanvleck"
	"github.com/cwbudde/algo-acs/dsp/window"
)

// Noise factors (k2) of the spectrometer for smoothed and unsmoothed data.
const (
	noiseFactorHanning = 2.0
	noiseFactorOther   = 1.21
)

var timestampSuffix = regexp.MustCompile(`[A-D]\.fits$`)

// cacheState records the row a cache holds. The zero value is empty.
type cacheState struct {
	valid bool
	row   int
}

func validFor(row int) cacheState { return cacheState{valid: true, row: row} }

func (s cacheState) holds(row int) bool { return s.valid && s.row == row }

// Option configures a Table.
type Option func(*Table)

// WithConfig sets the pipeline configuration.
func WithConfig(cfg config.Config) Option {
	return func(t *Table) { t.cfg = cfg }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// Table produces spectra for the current row of a Source.
type Table struct {
	src    Source
	cfg    config.Config
	logger *slog.Logger

	resolver    *sampler.Resolver
	detector    *anomaly.Detector
	corrector   *vanvleck.Corrector
	smoother    *window.Smoother
	transformer *spectrum.Transformer
	badLags     *badlags.Log

	timestamp string
	scan      int
	bank      string
	spacing   float64
	tint      integratLayout

	raw        *buffer.Matrix
	data       *buffer.Matrix
	zero       []float64
	bad        []bool
	badZeroLag []bool
	integrat   []float64
	tintShape  []int
	correction vanvleck.Result

	rawState  cacheState
	dataState cacheState
	warned    bool
	valid     bool
}

// New returns a Table reading src. It fails when the metadata is missing or
// inconsistent, or the current row cannot be read.
func New(src Source, opts ...Option) (*Table, error) {
	t := &Table{
		cfg:    config.Default(),
		logger: slog.Default(),
		raw:    buffer.NewMatrix(0, 0),
		data:   buffer.NewMatrix(0, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}

	t.detector = anomaly.NewDetector(
		anomaly.WithSigmaFactor(t.cfg.SigmaFactor),
		anomaly.WithSpikeStart(t.cfg.SpikeStart),
		anomaly.WithRepair(t.cfg.FixLags),
	)
	t.corrector = vanvleck.NewCorrector(
		vanvleck.WithModel(t.cfg.VanVleckCorr),
		vanvleck.WithTableSize(t.cfg.VVSize),
		vanvleck.WithDCBias(t.cfg.UseDCBias, t.cfg.DCBias, t.cfg.MinBiasFactor),
		vanvleck.WithLogger(t.logger),
	)
	t.smoother = window.NewSmoother(t.cfg.Smoothing)
	t.transformer = spectrum.NewTransformer()
	t.badLags = badlags.Open(t.cfg.FixLagsLog, t.logger)

	if err := t.Reopen(src); err != nil {
		return nil, err
	}
	return t, nil
}

// Reopen attaches the Table to a new source. Caches are dropped and the
// one-time bad data warning is re-armed. On failure the Table is invalid and
// every data query returns ErrInvalid until a later Reopen succeeds.
func (t *Table) Reopen(src Source) error {
	t.valid = false
	t.rawState = cacheState{}
	t.dataState = cacheState{}
	t.warned = false

	row, err := src.Row()
	if err != nil {
		return fmt.Errorf("acs: %s: %w", src.Name(), err)
	}
	if len(row.Shape) != 3 {
		return fmt.Errorf("%w: %v", ErrShape, row.Shape)
	}

	kw := src.Keywords()
	axis := samplerAxis(kw)
	layout := sampler.Layout{Lags: row.Shape[0], SamplerAxis: axis}
	if axis == 2 {
		layout.Samplers, layout.States = row.Shape[2], row.Shape[1]
	} else {
		layout.Samplers, layout.States = row.Shape[1], row.Shape[2]
	}

	resolver, err := sampler.NewResolver(src.Metadata(), layout)
	if err != nil {
		t.logger.Error("backend table metadata unusable", "table", src.Name(), "error", err)
		return fmt.Errorf("acs: %s: %w", src.Name(), err)
	}
	tint, err := parseIntegratLayout(kw, resolver.Legacy())
	if err != nil {
		return fmt.Errorf("acs: %s: %w", src.Name(), err)
	}

	t.src = src
	t.resolver = resolver
	t.tint = tint
	t.spacing = 1
	if cdelt, ok := kw.Float("CDELT1"); ok && cdelt != 0 {
		t.spacing = 1 / (cdelt * float64(layout.Lags))
	}
	t.scan = -1
	if scan, ok := kw.Int("SCAN"); ok {
		t.scan = scan
	}
	t.bank = bankName(kw, src.SamplerKeywords())
	t.timestamp = timestampOf(src.Name())

	n := layout.Spectra()
	t.raw.Resize(n, layout.Lags)
	t.data.Resize(n, layout.Lags)
	t.zero = make([]float64, n)
	t.bad = make([]bool, n)
	t.badZeroLag = make([]bool, n)
	t.valid = true
	return nil
}

func samplerAxis(kw Keywords) int {
	tdesc, ok := kw.Text("TDESC3")
	if !ok {
		return 1
	}
	for i, name := range splitAxes(tdesc) {
		if name == "SAMPLER" {
			return i
		}
	}
	return 1
}

func splitAxes(desc string) []string {
	fields := strings.Split(desc, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func bankName(kw, samplerKW Keywords) string {
	if b, ok := kw.Text("BANK"); ok {
		return b
	}
	if b, ok := samplerKW.Text("BANK"); ok {
		return b
	}
	if b, ok := samplerKW.Text("bank"); ok {
		return b
	}
	return sampler.Unknown
}

// timestampOf strips the directory and the bank suffix ("A.fits") from a
// backend file name.
func timestampOf(name string) string {
	base := filepath.Base(name)
	if loc := timestampSuffix.FindStringIndex(base); loc != nil {
		return base[:loc[0]]
	}
	return base
}

// Valid reports whether the last Reopen succeeded.
func (t *Table) Valid() bool { return t.valid }

// Resolver returns the sampler metadata.
func (t *Table) Resolver() *sampler.Resolver { return t.resolver }

// Layout returns the DATA layout.
func (t *Table) Layout() sampler.Layout { return t.resolver.Layout() }

// Level returns the quantization level.
func (t *Table) Level() int { return t.resolver.Level() }

// Timestamp returns the scan timestamp derived from the file name.
func (t *Table) Timestamp() string { return t.timestamp }

// Scan returns the SCAN keyword, or -1.
func (t *Table) Scan() int { return t.scan }

// Bank returns the bank of the backend file.
func (t *Table) Bank() string { return t.bank }

// ChannelSpacing returns 1/(CDELT1*nlags), or 1 without CDELT1.
func (t *Table) ChannelSpacing() float64 { return t.spacing }

// NoiseFactor returns the radiometer noise factor k2 for the configured
// smoothing.
func (t *Table) NoiseFactor() float64 {
	if t.cfg.Smoothing == window.TypeHanning {
		return noiseFactorHanning
	}
	return noiseFactorOther
}

// Config returns the pipeline configuration.
func (t *Table) Config() config.Config { return t.cfg }

// Correction returns what the Van Vleck step did on the cached row.
func (t *Table) Correction() vanvleck.Result { return t.correction }

// checkSampler returns ErrInvalid for an invalid Table and panics on an
// out-of-range sampler.
func (t *Table) checkSampler(s int) error {
	if !t.valid {
		return ErrInvalid
	}
	if n := t.resolver.Samplers(); s < 0 || s >= n {
		panic(fmt.Sprintf("acs: sampler %d out of range [0,%d)", s, n))
	}
	return nil
}

// views returns the rows of m belonging to sampler s, indexed by state.
func (t *Table) views(m *buffer.Matrix, s int) [][]float64 {
	layout := t.resolver.Layout()
	out := make([][]float64, layout.States)
	for state := range out {
		out[state] = m.Row(layout.Index(s, state))
	}
	return out
}

// Data returns the processed spectra of sampler s as [state][channel]. The
// slices alias the cache and are valid until the row changes.
func (t *Table) Data(s int) ([][]float64, error) {
	if err := t.checkSampler(s); err != nil {
		return nil, err
	}
	if err := t.ensureData(); err != nil {
		return nil, err
	}
	return t.views(t.data, s), nil
}

// RawData returns the unprocessed lags of sampler s as [state][lag].
func (t *Table) RawData(s int) ([][]float64, error) {
	if err := t.checkSampler(s); err != nil {
		return nil, err
	}
	if err := t.ensureRaw(); err != nil {
		return nil, err
	}
	return t.views(t.raw, s), nil
}

// ZeroChannel returns the zero-channel value of each state of sampler s.
// Spectra with a bad zero lag report their raw zero lag.
func (t *Table) ZeroChannel(s int) ([]float64, error) {
	if err := t.checkSampler(s); err != nil {
		return nil, err
	}
	if err := t.ensureData(); err != nil {
		return nil, err
	}
	layout := t.resolver.Layout()
	out := make([]float64, layout.States)
	for state := range out {
		out[state] = t.zero[layout.Index(s, state)]
	}
	return out, nil
}

// BadData reports, per state of sampler s, whether the spectrum has a bad
// zero lag or an unrepairable discontinuity.
func (t *Table) BadData(s int) ([]bool, error) {
	if err := t.checkSampler(s); err != nil {
		return nil, err
	}
	if err := t.ensureData(); err != nil {
		return nil, err
	}
	layout := t.resolver.Layout()
	out := make([]bool, layout.States)
	for state := range out {
		out[state] = t.bad[layout.Index(s, state)]
	}
	return out, nil
}

func (t *Table) ensureRaw() error {
	rownr := t.src.RowNumber()
	if t.rawState.holds(rownr) {
		return nil
	}
	row, err := t.src.Row()
	if err != nil {
		return fmt.Errorf("acs: row %d: %w", rownr, err)
	}

	layout := t.resolver.Layout()
	n, nlags := layout.Spectra(), layout.Lags
	if len(row.Shape) != 3 || row.Shape[0] != nlags || row.Shape[1]*row.Shape[2] != n || len(row.Data) != n*nlags {
		return fmt.Errorf("%w: row %d shape %v with %d values", ErrShape, rownr, row.Shape, len(row.Data))
	}
	for s := 0; s < n; s++ {
		dst := t.raw.Row(s)
		src := row.Data[s*nlags : (s+1)*nlags]
		for j, v := range src {
			dst[j] = float64(v)
		}
	}
	t.integrat = row.Integrat
	t.tintShape = row.IntegratShape

	t.rawState = validFor(rownr)
	return nil
}

func (t *Table) ensureData() error {
	rownr := t.src.RowNumber()
	if t.dataState.holds(rownr) {
		return nil
	}
	if err := t.ensureRaw(); err != nil {
		return err
	}
	t.data.CopyFrom(t.raw)
	if err := t.process(rownr); err != nil {
		t.dataState = cacheState{}
		return err
	}
	t.dataState = validFor(rownr)
	return nil
}
