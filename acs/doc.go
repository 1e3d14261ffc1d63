// Package acs turns rows of a GBT autocorrelation spectrometer (ACS) backend
// table into calibrated spectra.
//
// A Table reads the raw lag cell of the current row, checks it for bad zero
// lags, block discontinuities and spikes, applies the configured Van Vleck
// correction and lag window, and transforms every lag vector into a
// spectrum. Results are cached until the source moves to another row.
//
// A Table is not safe for concurrent use.
package acs
