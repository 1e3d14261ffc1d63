package acs

import (
	"fmt"

	"github.com/cwbudde/algo-acs/acs/badlags"
	"github.com/cwbudde/algo-acs/dsp/anomaly"
	"github.com/cwbudde/algo-acs/dsp/vanvleck"
)

// process runs the correction chain on the data matrix, which holds a copy
// of the raw lags of row rownr.
func (t *Table) process(rownr int) error {
	m := t.data.Rows()
	level := t.resolver.Level()

	anyBad := t.flagZeroLags(m, level)
	if t.checkAnomalies(m, rownr) {
		anyBad = true
	}

	res, err := t.corrector.Correct(m, level, t.badZeroLag, t.resolver)
	if err != nil {
		return fmt.Errorf("acs: row %d: %w", rownr, err)
	}
	t.correction = res

	t.smoother.ApplyAll(m, t.badZeroLag)

	for s, bad := range t.badZeroLag {
		if bad {
			t.zero[s] = m[s][0]
		}
	}
	if err := t.transformer.TransformAll(m, t.zero, t.smoother.EdgeWeight(), t.badZeroLag); err != nil {
		return fmt.Errorf("acs: row %d: %w", rownr, err)
	}

	if anyBad && !t.warned {
		t.logger.Error("Some bad data (zero-lag <= 0 or > maximum expected value or sharp discontinuity) is present in this scan - that data will be flagged as bad as it is filled.",
			"table", t.src.Name(), "row", rownr, "scan", t.scan)
		t.warned = true
	}
	return nil
}

// flagZeroLags marks autocorrelations whose zero lag is out of range.
// Cross-correlation zero lags carry no such constraint.
func (t *Table) flagZeroLags(m [][]float64, level int) bool {
	anyBad := false
	for s, lags := range m {
		bad := t.resolver.IsAuto(s) && vanvleck.BadZeroLag(level, lags[0])
		t.badZeroLag[s] = bad
		t.bad[s] = bad
		anyBad = anyBad || bad
	}
	return anyBad
}

// checkAnomalies runs the discontinuity and spike checks on every spectrum
// with a usable zero lag and reports each event.
func (t *Table) checkAnomalies(m [][]float64, rownr int) bool {
	anyBad := false
	for s, lags := range m {
		if t.badZeroLag[s] {
			continue
		}
		res := t.detector.Check(lags, !t.resolver.IsAuto(s))
		for _, e := range res.Events {
			t.report(s, rownr, e)
		}
		if res.Unrepairable {
			t.bad[s] = true
			anyBad = true
		}
	}
	return anyBad
}

func (t *Table) report(s, rownr int, e anomaly.Event) {
	t.badLags.Report(badlags.Record{
		Timestamp: t.timestamp,
		Scan:      t.scan,
		Sampler:   t.resolver.Label(s),
		Row:       rownr,
		Phase:     t.resolver.Phase(s),
		Channels:  e.Channels(),
		Comment:   e.Comment,
	})
}
