package sampler

import "errors"

var (
	// ErrNoSamplers is returned when the SAMPLER table has no rows.
	ErrNoSamplers = errors.New("sampler: empty SAMPLER table")
	// ErrPortNotFound is returned when no PORT row matches the first sampler.
	ErrPortNotFound = errors.New("sampler: no match in the PORT table")
	// ErrEmptyPortTable is returned for legacy metadata without a LEVEL column.
	ErrEmptyPortTable = errors.New("sampler: empty PORT table")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("sampler: missing column")
	// ErrInvalidLayout is returned for inconsistent data shapes.
	ErrInvalidLayout = errors.New("sampler: invalid layout")
)
