package anomaly

import (
	"math"
	"strconv"

	"github.com/cwbudde/algo-acs/stats/running"
)

const (
	// BlockSize is the lag count of one correlator hardware block.
	BlockSize = 1024
	// GuardSize is the length of the reference window before a block boundary.
	GuardSize = 512
	// ProbeSize is the number of leading block lags tested before committing
	// to a full-block comparison.
	ProbeSize = 10
	// SpikeHalfWidth is the number of lags on each side of a spike candidate.
	SpikeHalfWidth = 100
)

// Comments attached to events that were not repaired.
const (
	CommentAdjacentBlocks = "Adjacent bad 1024-blocks - entire row flagged as bad, not fixed."
	CommentBadBlock       = "Bad 1024-block - entire row flagged as bad, not fixed."
	CommentSpikeGroup     = "Adjacent spikes - not fixed"
	CommentSpike          = "Spike - not fixed"
)

// Event is one detected anomaly. First and Last are inclusive lag indices.
type Event struct {
	First    int
	Last     int
	Repaired bool
	Comment  string
}

// Channels formats the lag range as "first:last", or "first" for a single lag.
func (e Event) Channels() string {
	if e.First == e.Last {
		return strconv.Itoa(e.First)
	}
	return strconv.Itoa(e.First) + ":" + strconv.Itoa(e.Last)
}

// Result summarizes the checks on one lag vector.
type Result struct {
	// Unrepairable is set when a bad block could not be repaired; the whole
	// spectrum must then be treated as bad.
	Unrepairable bool
	Events       []Event
}

// Found reports whether any anomaly was seen.
func (r Result) Found() bool {
	return len(r.Events) > 0
}

func (r *Result) add(e Event) {
	r.Events = append(r.Events, e)
}

// Option configures a Detector.
type Option func(*Detector)

// WithSigmaFactor sets the deviation threshold in standard deviations.
func WithSigmaFactor(f float64) Option {
	return func(d *Detector) {
		if f > 0 {
			d.sigmaFactor = f
		}
	}
}

// WithSpikeStart sets the first lag tested for spikes. Values below
// SpikeHalfWidth are raised to it.
func WithSpikeStart(lag int) Option {
	return func(d *Detector) {
		if lag >= 0 {
			d.spikeStart = lag
		}
	}
}

// WithRepair enables in-place repair. Without it the detector only reports.
func WithRepair(repair bool) Option {
	return func(d *Detector) {
		d.repair = repair
	}
}

// Detector checks lag vectors for block discontinuities and spikes.
type Detector struct {
	sigmaFactor float64
	spikeStart  int
	repair      bool
}

// NewDetector returns a Detector with sigma factor 6, spike start 200 and
// repair disabled, modified by opts.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		sigmaFactor: 6,
		spikeStart:  200,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// SigmaFactor returns the configured threshold.
func (d *Detector) SigmaFactor() float64 { return d.sigmaFactor }

// Repairs reports whether the detector repairs data in place.
func (d *Detector) Repairs() bool { return d.repair }

// Check examines lags and, when repair is enabled, fixes what it can in
// place. crossCorrelation enables the extra test of the first block, which
// has no preceding reference window.
func (d *Detector) Check(lags []float64, crossCorrelation bool) Result {
	var r Result
	if crossCorrelation && !d.checkLeadingBlock(lags, &r) {
		return r
	}
	if !d.checkBlocks(lags, &r) {
		return r
	}
	d.checkSpikes(lags, &r)
	return r
}

// checkLeadingBlock compares [GuardSize, BlockSize) against the lags that
// follow it. It returns false when the spectrum became unrepairable.
func (d *Detector) checkLeadingBlock(lags []float64, r *Result) bool {
	if len(lags) < BlockSize+GuardSize {
		return true
	}

	test := running.Of(lags[GuardSize:BlockSize])
	good := running.Of(lags[BlockSize : BlockSize+GuardSize])
	if !good.Deviates(test.Mean(), d.sigmaFactor) || math.Abs(test.Mean()) <= math.Abs(good.Mean()) {
		return true
	}

	if !d.repair {
		r.Unrepairable = true
		r.add(Event{First: 0, Last: BlockSize - 1, Comment: CommentBadBlock})
		return false
	}

	rescale(lags[:BlockSize], test, good)
	r.add(Event{First: 0, Last: BlockSize - 1, Repaired: true})
	return true
}

// checkBlocks walks the block boundaries. It returns false when the spectrum
// became unrepairable.
func (d *Detector) checkBlocks(lags []float64, r *Result) bool {
	n := len(lags)
	for start := BlockSize; start+BlockSize <= n; start += BlockSize {
		good := running.Of(lags[start-GuardSize : start])
		probe := running.Of(lags[start : start+ProbeSize])
		if !good.Deviates(probe.Mean(), d.sigmaFactor) {
			continue
		}

		next := start + BlockSize
		if next+ProbeSize <= n {
			right := running.Of(lags[next : next+ProbeSize])
			if good.Deviates(right.Mean(), d.sigmaFactor) {
				r.Unrepairable = true
				r.add(Event{First: 0, Last: n - 1, Comment: CommentAdjacentBlocks})
				return false
			}
			good.Merge(running.Of(lags[next:min(next+GuardSize, n)]))
		}

		block := running.Of(lags[start:next])
		if !good.Deviates(block.Mean(), d.sigmaFactor) {
			continue
		}

		if !d.repair {
			r.Unrepairable = true
			r.add(Event{First: start, Last: next - 1, Comment: CommentBadBlock})
			return false
		}

		rescale(lags[start:next], block, good)
		r.add(Event{First: start, Last: next - 1, Repaired: true})
	}
	return true
}

// checkSpikes runs the sliding-window spike test from the configured start
// lag to the end of the vector. The start is never below SpikeHalfWidth so
// the leading half of the window is always complete.
func (d *Detector) checkSpikes(lags []float64, r *Result) {
	n := len(lags)
	start := max(d.spikeStart, SpikeHalfWidth)
	if start >= n {
		return
	}

	var w running.Accumulator
	for j := start - SpikeHalfWidth; j <= min(n-1, start+SpikeHalfWidth); j++ {
		if j != start {
			w.Add(lags[j])
		}
	}

	lastSpike := -2
	groupStart := -1
	for k := start; k < n; k++ {
		if k > start {
			w.Remove(lags[k-1-SpikeHalfWidth])
			if lead := k + SpikeHalfWidth; lead < n {
				w.Add(lags[lead])
			}
			w.Add(lags[k-1])
			w.Remove(lags[k])
		}
		if w.N() < 2 {
			continue
		}

		if !w.Deviates(lags[k], d.sigmaFactor) {
			if groupStart >= 0 {
				r.add(Event{First: groupStart, Last: lastSpike, Comment: CommentSpikeGroup})
				groupStart = -1
			}
			continue
		}

		if k-lastSpike > 1 {
			switch {
			case k+1 < n && w.Deviates(lags[k+1], d.sigmaFactor):
				groupStart = k
			case d.repair:
				lags[k] = w.Mean()
				r.add(Event{First: k, Last: k, Repaired: true})
			default:
				r.add(Event{First: k, Last: k, Comment: CommentSpike})
			}
		}
		lastSpike = k
	}

	if groupStart >= 0 {
		r.add(Event{First: groupStart, Last: lastSpike, Comment: CommentSpikeGroup})
	}
}

// rescale maps seg affinely so that its mean and standard deviation match
// good. A constant segment is only shifted.
func rescale(seg []float64, stats, good running.Accumulator) {
	scale := 1.0
	if sd := stats.StdDev(); sd > 0 {
		scale = good.StdDev() / sd
	}
	mean, target := stats.Mean(), good.Mean()
	for i, v := range seg {
		seg[i] = (v-mean)*scale + target
	}
}
