package acs

import "errors"

var (
	// ErrInvalid is returned by queries on a Table whose last Reopen failed.
	ErrInvalid = errors.New("acs: table metadata invalid")
	// ErrShape is returned when a row does not match the table layout.
	ErrShape = errors.New("acs: unexpected DATA shape")
	// ErrIntegratAxis is returned for an unrecognized INTEGRAT axis in TDESC2.
	ErrIntegratAxis = errors.New("acs: unrecognized INTEGRAT axis")
	// ErrIntegratShape is returned when INTEGRAT does not match the layout.
	ErrIntegratShape = errors.New("acs: unexpected INTEGRAT shape")
	// ErrNoRows is returned by sources without rows.
	ErrNoRows = errors.New("acs: table has no rows")
	// ErrRowRange is returned when seeking outside the table.
	ErrRowRange = errors.New("acs: row out of range")
)
