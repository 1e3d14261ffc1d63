// Package buffer provides owned, reusable float64 containers for row-based
// correlator processing. Buffers and matrices resize in place, reusing their
// backing storage when the capacity allows, so per-row processing does not
// reallocate once the table shape is known.
package buffer
