package vanvleck

import "errors"

var (
	errUnknownModel = errors.New("vanvleck: unknown correction model")
	// ErrUnsupportedLevel is returned for quantization levels other than 3 and 9.
	ErrUnsupportedLevel = errors.New("vanvleck: unsupported quantization level")
	// ErrShape is returned when the lag matrix and flag vector disagree.
	ErrShape = errors.New("vanvleck: inconsistent matrix shape")
	errTable = errors.New("vanvleck: cannot build inversion table")
)
