package testutil

import (
	"math"
	"math/rand"
)

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude)
// with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// NoisyLags returns a lag vector of the given length around mean with
// bounded uniform noise. Bounded noise never produces a 6-sigma outlier, so
// detectors see only the anomalies a test injects.
func NoisyLags(seed int64, length int, mean, amplitude float64) []float64 {
	out := DeterministicNoise(seed, amplitude, length)
	for i := range out {
		out[i] += mean
	}
	return out
}

// DecayingLags returns an exponentially decaying lag vector starting at
// zeroLag: lags[i] = zeroLag * exp(-rate*i).
func DecayingLags(length int, zeroLag, rate float64) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = zeroLag * math.Exp(-rate*float64(i))
	}
	return out
}

// Offset adds delta to lags[from:to] in place and returns lags.
func Offset(lags []float64, from, to int, delta float64) []float64 {
	for i := from; i < to && i < len(lags); i++ {
		lags[i] += delta
	}
	return lags
}

// Float32s converts a float64 slice to float32.
func Float32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
