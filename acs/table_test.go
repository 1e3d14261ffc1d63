package acs

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cwbudde/algo-acs/acs/badlags"
	"github.com/cwbudde/algo-acs/acs/sampler"
	"github.com/cwbudde/algo-acs/config"
	"github.com/cwbudde/algo-acs/dsp/spectrum"
	"github.com/cwbudde/algo-acs/dsp/vanvleck"
	"github.com/cwbudde/algo-acs/dsp/window"
	"github.com/cwbudde/algo-acs/internal/testutil"
)

// countingSource counts Row calls to detect recomputation.
type countingSource struct {
	*MemorySource
	reads int
}

func (c *countingSource) Row() (Row, error) {
	c.reads++
	return c.MemorySource.Row()
}

func autoMetadata(level int, ports ...int) sampler.Metadata {
	var meta sampler.Metadata
	for _, p := range ports {
		meta.Samplers = append(meta.Samplers, sampler.Record{"BANK_A": "A", "PORT_A": p, "BANK_B": "A", "PORT_B": p})
		meta.Ports = append(meta.Ports, sampler.Record{"BANK": "A", "PORT": p, "LEVEL": level})
	}
	return meta
}

func crossMetadata(level int) sampler.Metadata {
	meta := autoMetadata(level, 1, 2)
	meta.Samplers = append(meta.Samplers, sampler.Record{"BANK_A": "A", "PORT_A": 1, "BANK_B": "A", "PORT_B": 2})
	return meta
}

func newSource(meta sampler.Metadata, rows ...Row) *MemorySource {
	return &MemorySource{
		FileName: "/data/AGBT05A_001/ACS/2005_06_01_12:00:00A.fits",
		Header: Keywords{
			"CDELT1": 1.5625e6,
			"SCAN":   12,
			"TDESC2": "SAMPLER,ACT_STATE",
			"TDESC3": "LAGS,SAMPLER,ACT_STATE",
		},
		SamplerHeader: Keywords{"bank": "B"},
		Meta:          meta,
		Rows:          rows,
	}
}

func quiet(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func float64s(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func TestNoVanVleckIsSmoothedTransform(t *testing.T) {
	lagsA := testutil.DecayingLags(16, 0.5, 0.3)
	lagsB := testutil.DecayingLags(16, 0.4, 0.2)
	src := newSource(autoMetadata(3, 1), NewRow(1, 2, [][]float64{lagsA, lagsB}))

	var buf bytes.Buffer
	tab, err := New(src, WithConfig(config.New(config.WithVanVleck(vanvleck.NoVanVleck))), WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := tab.Data(0)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := tab.RawData(0)
	if err != nil {
		t.Fatal(err)
	}
	zero, _ := tab.ZeroChannel(0)

	sm := window.NewSmoother(window.TypeHanning)
	tr := spectrum.NewTransformer()
	for state := range data {
		want := slices.Clone(raw[state])
		sm.Apply(want)
		dc, err := tr.Transform(want, sm.EdgeWeight())
		if err != nil {
			t.Fatal(err)
		}
		testutil.RequireSliceNearlyEqual(t, data[state], want, 1e-12)
		testutil.RequireNearlyEqual(t, "zero channel", zero[state], dc, 1e-12)
	}
	// The raw cache is not touched by processing.
	testutil.RequireSliceNearlyEqual(t, raw[0], float64s(testutil.Float32s(lagsA)), 0)
}

func TestDataIsCachedPerRow(t *testing.T) {
	row0 := NewRow(1, 1, [][]float64{testutil.DecayingLags(32, 0.5, 0.3)})
	row1 := NewRow(1, 1, [][]float64{testutil.DecayingLags(32, 0.3, 0.1)})
	src := &countingSource{MemorySource: newSource(autoMetadata(3, 1), row0, row1)}

	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}

	first, err := tab.Data(0)
	if err != nil {
		t.Fatal(err)
	}
	snapshot := slices.Clone(first[0])
	reads := src.reads

	second, err := tab.Data(0)
	if err != nil {
		t.Fatal(err)
	}
	if &first[0][0] != &second[0][0] {
		t.Fatal("second call returned a different array")
	}
	if src.reads != reads {
		t.Fatalf("row re-read: %d reads, want %d", src.reads, reads)
	}
	testutil.RequireSliceNearlyEqual(t, second[0], snapshot, 0)

	if err := src.Seek(1); err != nil {
		t.Fatal(err)
	}
	third, err := tab.Data(0)
	if err != nil {
		t.Fatal(err)
	}
	if src.reads != reads+1 {
		t.Fatalf("row change did not reload: %d reads", src.reads)
	}
	if third[0][0] == snapshot[0] {
		t.Fatal("row change did not invalidate the cache")
	}
}

func TestPowerLevelEndToEnd(t *testing.T) {
	lags := []float64{0.5, 0.3, 0.2, 0.12, 0.08, 0.05, 0.03, 0.01}
	src := newSource(autoMetadata(3, 1), NewRow(1, 1, [][]float64{lags}))

	var buf bytes.Buffer
	cfg := config.New(config.WithVanVleck(vanvleck.PowerLevel), config.WithSmoothing(window.TypeHanning))
	tab, err := New(src, WithConfig(cfg), WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}

	data, err := tab.Data(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || len(data[0]) != 8 {
		t.Fatalf("shape = %d x %d, want 1 x 8", len(data), len(data[0]))
	}

	const scale = 0.927695125686195
	testutil.RequireNearlyEqual(t, "scale", tab.Correction().Scale[0], scale, 1e-7)

	want := float64s(testutil.Float32s(lags))
	vanvleck.Normalize(3, want)
	for i := range want {
		want[i] *= tab.Correction().Scale[0]
	}
	testutil.RequireNearlyEqual(t, "corrected zero lag", want[0], scale, 1e-7)
	sm := window.NewSmoother(window.TypeHanning)
	sm.Apply(want)
	dc, err := spectrum.NewTransformer().Transform(want, sm.EdgeWeight())
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, data[0], want, 1e-12)

	zero, _ := tab.ZeroChannel(0)
	if len(zero) != 1 {
		t.Fatalf("zero channel values = %d, want 1", len(zero))
	}
	testutil.RequireNearlyEqual(t, "dc", zero[0], dc, 1e-12)
	testutil.RequireFinite(t, data[0])
}

func TestBadZeroLagPassesThrough(t *testing.T) {
	good := testutil.DecayingLags(16, 0.5, 0.3)
	bad := testutil.DecayingLags(16, -0.2, 0.3)
	row := NewRow(2, 1, [][]float64{good, bad})
	src := newSource(autoMetadata(3, 1, 2), row, row)

	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}

	flags, err := tab.BadData(1)
	if err != nil {
		t.Fatal(err)
	}
	if !flags[0] {
		t.Fatal("negative zero lag not flagged")
	}
	if flags, _ := tab.BadData(0); flags[0] {
		t.Fatal("good spectrum flagged")
	}

	data, _ := tab.Data(1)
	raw, _ := tab.RawData(1)
	testutil.RequireSliceNearlyEqual(t, data[0], raw[0], 0)
	zero, _ := tab.ZeroChannel(1)
	if zero[0] != raw[0][0] {
		t.Fatalf("zero channel = %v, want raw zero lag %v", zero[0], raw[0][0])
	}

	// The bad data warning is emitted once per table.
	if err := src.Seek(1); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.Data(0); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "Some bad data"); n != 1 {
		t.Fatalf("bad data warning emitted %d times", n)
	}

	if err := tab.Reopen(src); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.Data(0); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "Some bad data"); n != 2 {
		t.Fatalf("warning not re-armed by Reopen: %d", n)
	}
}

func TestDiscontinuityReportedToLogFile(t *testing.T) {
	lags := testutil.NoisyLags(3, 3072, 0.01, 0.001)
	lags[0] = 0.5
	testutil.Offset(lags, 1024, 2048, 0.5)
	src := newSource(autoMetadata(3, 1), NewRow(1, 1, [][]float64{lags}))

	logPath := filepath.Join(t.TempDir(), "scan.fixed_lags")
	cfg := config.New(config.WithVanVleck(vanvleck.NoVanVleck), config.WithFixLags(false, logPath))
	var buf bytes.Buffer
	tab, err := New(src, WithConfig(cfg), WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}

	flags, err := tab.BadData(0)
	if err != nil {
		t.Fatal(err)
	}
	if !flags[0] {
		t.Fatal("unrepaired discontinuity not flagged")
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	want := badlags.Header + "\n" +
		"# 2005_06_01_12:00:00 12 A1 0 0 1024:2047 Bad 1024-block - entire row flagged as bad, not fixed.\n"
	if string(content) != want {
		t.Fatalf("log file = %q, want %q", content, want)
	}
}

func TestDiscontinuityRepairedInTable(t *testing.T) {
	lags := testutil.NoisyLags(4, 3072, 0.01, 0.001)
	lags[0] = 0.5
	testutil.Offset(lags, 1024, 2048, 0.5)
	src := newSource(autoMetadata(3, 1), NewRow(1, 1, [][]float64{lags}))

	var buf bytes.Buffer
	cfg := config.New(config.WithVanVleck(vanvleck.NoVanVleck), config.WithSmoothing(window.TypeNone), config.WithFixLags(true, ""))
	tab, err := New(src, WithConfig(cfg), WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	flags, _ := tab.BadData(0)
	if flags[0] {
		t.Fatal("repaired discontinuity flagged bad")
	}
	if !strings.Contains(buf.String(), "2005_06_01_12:00:00 12 A1 0 0 1024:2047") {
		t.Fatalf("repair not reported to the logger: %q", buf.String())
	}
	raw, _ := tab.RawData(0)
	if raw[0][1500] < 0.4 {
		t.Fatal("raw cache modified by repair")
	}
}

func TestSchwabCrossCorrelationTable(t *testing.T) {
	a := testutil.DecayingLags(64, 0.45, 0.1)
	b := testutil.DecayingLags(64, 0.5, 0.1)
	x := testutil.DecayingLags(64, 0.2, 0.1)
	src := newSource(crossMetadata(3), NewRow(3, 1, [][]float64{a, b, x}))

	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	if tab.Resolver().Label(2) != "A1xA2" {
		t.Fatalf("label = %q", tab.Resolver().Label(2))
	}
	for s := 0; s < 3; s++ {
		data, err := tab.Data(s)
		if err != nil {
			t.Fatal(err)
		}
		testutil.RequireFinite(t, data[0])
	}
	if c := tab.Correction(); !c.Corrected[2] || len(c.Samplers) != 2 {
		t.Fatalf("correction = %+v", c)
	}
}

func TestTableProperties(t *testing.T) {
	src := newSource(autoMetadata(9, 1), NewRow(1, 1, [][]float64{testutil.DecayingLags(64, 2, 0.05)}))
	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	if tab.Timestamp() != "2005_06_01_12:00:00" {
		t.Fatalf("timestamp = %q", tab.Timestamp())
	}
	if tab.Scan() != 12 || tab.Bank() != "B" || tab.Level() != 9 {
		t.Fatalf("scan %d bank %q level %d", tab.Scan(), tab.Bank(), tab.Level())
	}
	testutil.RequireNearlyEqual(t, "spacing", tab.ChannelSpacing(), 1/(1.5625e6*64), 1e-15)
	if tab.NoiseFactor() != 2.0 {
		t.Fatalf("noise factor = %v", tab.NoiseFactor())
	}

	src.Header = Keywords{"BANK": "C"}
	cfg := config.New(config.WithSmoothing(window.TypeHamming))
	tab, err = New(src, WithConfig(cfg), WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	if tab.ChannelSpacing() != 1 || tab.Scan() != -1 || tab.Bank() != "C" || tab.NoiseFactor() != 1.21 {
		t.Fatalf("defaults: spacing %v scan %d bank %q k2 %v", tab.ChannelSpacing(), tab.Scan(), tab.Bank(), tab.NoiseFactor())
	}
}

func TestTimestampOf(t *testing.T) {
	tests := map[string]string{
		"/a/b/2005_06_01_12:00:00A.fits": "2005_06_01_12:00:00",
		"2005_06_01_12:00:00D.fits":      "2005_06_01_12:00:00",
		"scan.fits":                      "scan.fits",
		"plain":                          "plain",
	}
	for in, want := range tests {
		if got := timestampOf(in); got != want {
			t.Errorf("timestampOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewErrors(t *testing.T) {
	row := NewRow(1, 1, [][]float64{{0.5, 0.1}})
	var buf bytes.Buffer

	missing := autoMetadata(3, 1)
	missing.Ports[0]["PORT"] = 7
	if _, err := New(newSource(missing, row), WithLogger(quiet(&buf))); !errors.Is(err, sampler.ErrPortNotFound) {
		t.Fatalf("port mismatch: err = %v", err)
	}

	legacy := sampler.Metadata{Samplers: []sampler.Record{{}}}
	if _, err := New(newSource(legacy, row), WithLogger(quiet(&buf))); !errors.Is(err, sampler.ErrEmptyPortTable) {
		t.Fatalf("empty port table: err = %v", err)
	}

	if _, err := New(newSource(autoMetadata(3, 1)), WithLogger(quiet(&buf))); !errors.Is(err, ErrNoRows) {
		t.Fatalf("no rows: err = %v", err)
	}

	src := newSource(autoMetadata(3, 1), row)
	src.Header["TDESC2"] = "SAMPLER,BEAM"
	if _, err := New(src, WithLogger(quiet(&buf))); !errors.Is(err, ErrIntegratAxis) {
		t.Fatalf("bad TDESC2: err = %v", err)
	}
}

func TestShapeChangeIsAnError(t *testing.T) {
	row0 := NewRow(1, 1, [][]float64{{0.5, 0.1, 0.05, 0.01}})
	row1 := NewRow(1, 1, [][]float64{{0.5, 0.1}})
	src := newSource(autoMetadata(3, 1), row0, row1)
	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	_ = src.Seek(1)
	if _, err := tab.Data(0); !errors.Is(err, ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}

func TestSamplerOutOfRangePanics(t *testing.T) {
	src := newSource(autoMetadata(3, 1), NewRow(1, 1, [][]float64{{0.5, 0.1}}))
	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	_, _ = tab.Data(1)
}

func TestLoadMemorySource(t *testing.T) {
	fixture := `
name: 2006_01_01_00:00:00B.fits
keywords:
  SCAN: 7
  TDESC2: ACT_STATE,SAMPLER
metadata:
  sampler:
    - {BANK_A: B, PORT_A: 1, BANK_B: B, PORT_B: 1}
  port:
    - {BANK: B, PORT: 1, LEVEL: 3}
rows:
  - shape: [4, 1, 2]
    data: [0.5, 0.2, 0.1, 0.05, 0.4, 0.2, 0.1, 0.05]
    integrat: [2.0e8, 1.5]
`
	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := LoadMemorySource(path)
	if err != nil {
		t.Fatalf("LoadMemorySource: %v", err)
	}
	if src.NumRows() != 1 || src.Name() != "2006_01_01_00:00:00B.fits" {
		t.Fatalf("source = %+v", src)
	}

	var buf bytes.Buffer
	tab, err := New(src, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	if tab.Timestamp() != "2006_01_01_00:00:00" || tab.Scan() != 7 {
		t.Fatalf("timestamp %q scan %d", tab.Timestamp(), tab.Scan())
	}
	data, err := tab.Data(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 || len(data[1]) != 4 {
		t.Fatalf("data shape %d x %d", len(data), len(data[1]))
	}

	// TDESC2 lists the state axis first: INTEGRAT is [state, sampler].
	for state, want := range []float64{2, 1.5} {
		got, err := tab.Integrat(0, state)
		if err != nil {
			t.Fatal(err)
		}
		testutil.RequireNearlyEqual(t, "integrat", got, want, 1e-12)
	}
}

func TestFailedReopenInvalidatesTable(t *testing.T) {
	good := newSource(autoMetadata(3, 1), NewRow(1, 1, [][]float64{testutil.DecayingLags(16, 0.5, 0.3)}))
	var buf bytes.Buffer
	tab, err := New(good, WithLogger(quiet(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tab.Data(0); err != nil || !tab.Valid() {
		t.Fatalf("Data on a fresh table: %v", err)
	}

	mismatched := autoMetadata(3, 1)
	mismatched.Ports[0]["PORT"] = 9
	other := newSource(mismatched, NewRow(1, 1, [][]float64{testutil.DecayingLags(16, 0.9, 0.3)}))
	if err := tab.Reopen(other); !errors.Is(err, sampler.ErrPortNotFound) {
		t.Fatalf("Reopen: err = %v, want ErrPortNotFound", err)
	}
	if tab.Valid() {
		t.Fatal("table still valid after failed Reopen")
	}

	if _, err := tab.Data(0); !errors.Is(err, ErrInvalid) {
		t.Errorf("Data: err = %v, want ErrInvalid", err)
	}
	if _, err := tab.RawData(0); !errors.Is(err, ErrInvalid) {
		t.Errorf("RawData: err = %v, want ErrInvalid", err)
	}
	if _, err := tab.ZeroChannel(0); !errors.Is(err, ErrInvalid) {
		t.Errorf("ZeroChannel: err = %v, want ErrInvalid", err)
	}
	if _, err := tab.BadData(0); !errors.Is(err, ErrInvalid) {
		t.Errorf("BadData: err = %v, want ErrInvalid", err)
	}
	if _, err := tab.Integrat(0, 0); !errors.Is(err, ErrInvalid) {
		t.Errorf("Integrat: err = %v, want ErrInvalid", err)
	}

	if err := tab.Reopen(good); err != nil {
		t.Fatalf("Reopen onto a good source: %v", err)
	}
	raw, err := tab.RawData(0)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0][0] != float64(float32(0.5)) {
		t.Fatalf("raw zero lag = %v, want 0.5", raw[0][0])
	}
}
