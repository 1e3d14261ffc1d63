// Package vanvleck corrects correlator lags for the distortion introduced by
// coarse (3- or 9-level) digitization.
//
// Three models are available. NoVanVleck leaves the data alone. PowerLevel
// derives a per-spectrum power scale from the zero lag with empirical
// polynomial fits and renormalizes the lags with the matching polynomial
// correction. Schwab inverts the exact quantizer correlation function,
// estimating sampler thresholds and DC bias from each autocorrelation and
// reusing them for the cross-correlations between the same inputs.
package vanvleck
