package rowprocessor

import "errors"

var (
	// ErrMissingColumn is recorded per-row when a required source column is
	// absent from a chunk's row map or its value is blank.
	ErrMissingColumn = errors.New("rowprocessor: required column missing")

	// ErrValidationFailed is recorded per-row when Validate rejects a value.
	ErrValidationFailed = errors.New("rowprocessor: value failed validation")

	// ErrDuplicateRow names a unique-key collision. The processor does not
	// return or wrap it: a duplicate row is logged as a WARNING line and
	// counted in error_rows.
	ErrDuplicateRow = errors.New("rowprocessor: duplicate row")
)
