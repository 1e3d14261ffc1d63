// Package sampler resolves the correlator sampler of each spectrum in a
// backend table to its bank/port identities and phase, and classifies the
// spectrum as an auto- or cross-correlation.
package sampler

import (
	"fmt"
	"strconv"
)

// Unknown is the bank name used for legacy metadata.
const Unknown = "unknown"

// Identity names one analog input chain.
type Identity struct {
	Bank string
	Port int
}

// String returns bank and port concatenated, e.g. "A1".
func (id Identity) String() string {
	return id.Bank + strconv.Itoa(id.Port)
}

// Key returns the lookup key for id in the given phase, e.g. "A12".
func (id Identity) Key(phase int) string {
	return id.String() + strconv.Itoa(phase)
}

// Pair is the two inputs correlated by one sampler.
type Pair struct {
	A, B Identity
}

// IsAuto reports whether both sides are the same input.
func (p Pair) IsAuto() bool {
	return p.A == p.B
}

// Label returns "A1" for autocorrelations and "A1xB2" otherwise.
func (p Pair) Label() string {
	if p.IsAuto() {
		return p.A.String()
	}
	return p.A.String() + "x" + p.B.String()
}

// Layout describes the DATA cell shape [lags, dim2, dim3]. SamplerAxis is 1
// when dim2 counts samplers and 2 when dim3 does.
type Layout struct {
	Lags        int
	Samplers    int
	States      int
	SamplerAxis int
}

// Validate checks the layout for positive sizes and a known sampler axis.
func (l Layout) Validate() error {
	if l.Lags <= 0 || l.Samplers <= 0 || l.States <= 0 {
		return fmt.Errorf("%w: lags=%d samplers=%d states=%d", ErrInvalidLayout, l.Lags, l.Samplers, l.States)
	}
	if l.SamplerAxis != 1 && l.SamplerAxis != 2 {
		return fmt.Errorf("%w: sampler axis %d", ErrInvalidLayout, l.SamplerAxis)
	}
	return nil
}

// Spectra returns the number of spectra per row.
func (l Layout) Spectra() int {
	return l.Samplers * l.States
}

// Index returns the linear spectrum index of (sampler, state) in the
// column-major DATA layout.
func (l Layout) Index(sampler, state int) int {
	if l.SamplerAxis == 2 {
		return state + l.States*sampler
	}
	return sampler + l.Samplers*state
}

// Position is the inverse of Index.
func (l Layout) Position(spec int) (sampler, state int) {
	if l.SamplerAxis == 2 {
		return spec / l.States, spec % l.States
	}
	return spec % l.Samplers, spec / l.Samplers
}

// Resolver maps spectra to sampler identities.
type Resolver struct {
	layout Layout
	pairs  []Pair
	level  int
	legacy bool
}

// NewResolver reads sampler identities and the quantization level from
// meta. An empty PORT table selects the legacy format, where LEVEL lives on
// the SAMPLER table and identities are synthesized.
func NewResolver(meta Metadata, layout Layout) (*Resolver, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(meta.Samplers) == 0 {
		return nil, ErrNoSamplers
	}
	if len(meta.Samplers) != layout.Samplers {
		return nil, fmt.Errorf("%w: %d SAMPLER rows for %d samplers", ErrInvalidLayout, len(meta.Samplers), layout.Samplers)
	}

	r := &Resolver{layout: layout}
	var err error
	if len(meta.Ports) > 0 {
		err = r.resolve(meta)
	} else {
		err = r.resolveLegacy(meta)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) resolve(meta Metadata) error {
	r.pairs = make([]Pair, len(meta.Samplers))
	for i, row := range meta.Samplers {
		bankA, okA := row.Text("BANK_A", "Bank_A")
		bankB, okB := row.Text("BANK_B", "Bank_B")
		if !okA || !okB {
			return fmt.Errorf("%w: BANK_A/BANK_B in SAMPLER row %d", ErrMissingColumn, i)
		}
		portA, okA := row.Int("PORT_A")
		portB, okB := row.Int("PORT_B")
		if !okA || !okB {
			return fmt.Errorf("%w: PORT_A/PORT_B in SAMPLER row %d", ErrMissingColumn, i)
		}
		r.pairs[i] = Pair{
			A: Identity{Bank: bankA, Port: portA},
			B: Identity{Bank: bankB, Port: portB},
		}
	}

	// The level is assumed constant over samplers.
	first := r.pairs[0].A
	for _, row := range meta.Ports {
		bank, _ := row.Text("BANK")
		port, ok := row.Int("PORT")
		if !ok || bank != first.Bank || port != first.Port {
			continue
		}
		level, ok := row.Int("LEVEL")
		if !ok {
			return fmt.Errorf("%w: LEVEL in PORT table", ErrMissingColumn)
		}
		r.level = level
		return nil
	}
	return fmt.Errorf("%w: bank %q port %d", ErrPortNotFound, first.Bank, first.Port)
}

func (r *Resolver) resolveLegacy(meta Metadata) error {
	level, ok := meta.Samplers[0].Int("LEVEL")
	if !ok {
		return ErrEmptyPortTable
	}
	r.level = level
	r.legacy = true
	r.pairs = make([]Pair, len(meta.Samplers))
	for i := range r.pairs {
		r.pairs[i] = Pair{
			A: Identity{Bank: Unknown, Port: i},
			B: Identity{Bank: Unknown, Port: i},
		}
	}
	return nil
}

// Layout returns the data layout the resolver was built for.
func (r *Resolver) Layout() Layout { return r.layout }

// Level returns the quantization level.
func (r *Resolver) Level() int { return r.level }

// Legacy reports whether the metadata used the old format.
func (r *Resolver) Legacy() bool { return r.legacy }

// Samplers returns the number of samplers.
func (r *Resolver) Samplers() int { return len(r.pairs) }

// SamplerPair returns the identities of a sampler.
func (r *Resolver) SamplerPair(sampler int) Pair { return r.pairs[sampler] }

// Sampler returns the sampler index of spectrum spec.
func (r *Resolver) Sampler(spec int) int {
	s, _ := r.layout.Position(spec)
	return s
}

// Phase returns the phase (state) index of spectrum spec.
func (r *Resolver) Phase(spec int) int {
	_, p := r.layout.Position(spec)
	return p
}

// Pair returns the identities correlated in spectrum spec.
func (r *Resolver) Pair(spec int) Pair {
	return r.pairs[r.Sampler(spec)]
}

// IsAuto reports whether spectrum spec is an autocorrelation.
func (r *Resolver) IsAuto(spec int) bool {
	return r.Pair(spec).IsAuto()
}

// Keys returns the per-phase lookup keys of both sides of spectrum spec.
// For autocorrelations a == b.
func (r *Resolver) Keys(spec int) (a, b string) {
	s, phase := r.layout.Position(spec)
	p := r.pairs[s]
	return p.A.Key(phase), p.B.Key(phase)
}

// Label returns the display name of the sampler of spectrum spec.
func (r *Resolver) Label(spec int) string {
	return r.Pair(spec).Label()
}
