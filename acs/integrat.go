package acs

import (
	"fmt"
)

// Integration values at or above countThreshold are clock counts.
const (
	countThreshold = 1e6
	countsPerSec   = 1e8
	minIntegration = 1e-6
)

// integratLayout is the axis order of the INTEGRAT cell.
type integratLayout struct {
	// normal is set when the sampler axis precedes the state axis.
	normal bool
	// legacy cells are 3-D with a leading unit axis.
	legacy bool
}

func parseIntegratLayout(kw Keywords, legacy bool) (integratLayout, error) {
	if legacy {
		return integratLayout{legacy: true}, nil
	}
	desc, ok := kw.Text("TDESC2")
	if !ok {
		return integratLayout{normal: true}, nil
	}
	stateAxis, samplerAxis := 0, 0
	for i, name := range splitAxes(desc) {
		switch name {
		case "ACT_STATE":
			stateAxis = i
		case "SAMPLER":
			samplerAxis = i
		default:
			return integratLayout{}, fmt.Errorf("%w: %q", ErrIntegratAxis, name)
		}
	}
	return integratLayout{normal: stateAxis > samplerAxis}, nil
}

// Integrat returns the integration time in seconds of sampler s in state.
// Clock counts are converted to seconds; values that are still implausible
// give 0.
func (t *Table) Integrat(s, state int) (float64, error) {
	if err := t.checkSampler(s); err != nil {
		return 0, err
	}
	if err := t.ensureRaw(); err != nil {
		return 0, err
	}

	layout := t.resolver.Layout()
	var pos, shape []int
	switch {
	case t.tint.legacy:
		pos = []int{0, s, state}
		shape = []int{1, layout.Samplers, layout.States}
	case t.tint.normal:
		pos = []int{s, state}
		shape = []int{layout.Samplers, layout.States}
	default:
		pos = []int{state, s}
		shape = []int{layout.States, layout.Samplers}
	}
	if len(t.tintShape) > 0 {
		shape = t.tintShape
	}

	idx, err := columnMajor(pos, shape)
	if err != nil || idx >= len(t.integrat) {
		return 0, fmt.Errorf("%w: %d values, shape %v, position %v", ErrIntegratShape, len(t.integrat), shape, pos)
	}

	v := t.integrat[idx]
	if v >= countThreshold {
		v /= countsPerSec
	}
	if !finite(v) || v <= minIntegration || v >= countThreshold {
		return 0, nil
	}
	return v, nil
}

func columnMajor(pos, shape []int) (int, error) {
	if len(pos) != len(shape) {
		return 0, fmt.Errorf("rank %d, want %d", len(shape), len(pos))
	}
	idx, stride := 0, 1
	for i, p := range pos {
		if p < 0 || p >= shape[i] {
			return 0, fmt.Errorf("index %d out of range on axis %d", p, i)
		}
		idx += p * stride
		stride *= shape[i]
	}
	return idx, nil
}
