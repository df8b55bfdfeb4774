package domain

import "errors"

// Sentinel errors for MappingConfig.Validate.
var (
	ErrMissingTargetTable   = errors.New("mapping: target_table is required")
	ErrNoColumns            = errors.New("mapping: at least one column is required")
	ErrInvalidColumnMapping = errors.New("mapping: source_column and db_column are required on every column")
	ErrMissingFKSpec        = errors.New("mapping: fk columns require an fk spec")
	ErrNoUniqueColumn       = errors.New("mapping: at least one column must be marked unique")
)
