package spectrum

import "errors"

var (
	errEmptyLags        = errors.New("spectrum: lag vector must not be empty")
	errMismatchedLength = errors.New("spectrum: destination must hold twice the lag count")
)
