package importjob

import "errors"

// Sentinel errors for the Job Store.
var (
	ErrNotFound          = errors.New("import job not found")
	ErrMappingNotFound   = errors.New("mapping configuration not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
)
