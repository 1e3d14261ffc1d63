// Package spectrum converts correlator lag vectors into power spectra.
//
// A lag vector of length L holds the non-negative lags of a real, even
// correlation function. Transform mirrors it into a length-2L sequence,
// runs a forward FFT and keeps the real parts of channels 1..L as the
// spectrum; the magnitude of channel 0 is returned separately as the
// zero-channel (DC) value.
package spectrum
