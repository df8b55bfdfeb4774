package importjob

import (
	"context"

	"github.com/rowforge/tabular-import/internal/domain"
)

// ListFilter controls the GET /imports listing (spec.md §6).
type ListFilter struct {
	Status domain.JobStatus
	Skip   int
	Limit  int
}

// Repository is the Job Store contract. Implementations must be safe for
// concurrent use; the counter-mutating methods must serialize concurrent
// callers so processed_rows/error_rows never regress (spec.md §5).
type Repository interface {
	// Create inserts a new Job in PENDING and returns it with its id set.
	Create(ctx context.Context, filename string) (*domain.Job, error)

	// Get returns a single Job. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// List returns job summaries newest first, optionally filtered by status.
	List(ctx context.Context, f ListFilter) ([]domain.Job, error)

	// SetTotalRows records the pre-counted row total (submitter step 3).
	SetTotalRows(ctx context.Context, id string, total int64) error

	// TransitionProcessing moves PENDING -> PROCESSING and sets started_at.
	// ok is false (no error) if the job was already terminal or processing,
	// satisfying the idempotent-redelivery requirement in spec.md §4.5.
	TransitionProcessing(ctx context.Context, id string) (ok bool, err error)

	// TransitionCompleted moves the job to COMPLETED and sets finished_at.
	TransitionCompleted(ctx context.Context, id string) error

	// TransitionFailed moves the job to FAILED, sets finished_at, and
	// appends an ERROR log line quoting reason in the same call.
	TransitionFailed(ctx context.Context, id string, reason string) error

	// IncrementCounters atomically adds to processed_rows/error_rows via a
	// single-row UPDATE with computed deltas (spec.md §5).
	IncrementCounters(ctx context.Context, id string, processedDelta, errorDelta int64) error

	// AppendLog appends one immutable log line.
	AppendLog(ctx context.Context, id string, level domain.LogLevel, message string) error

	// Logs returns all log lines for a job, oldest first.
	Logs(ctx context.Context, id string) ([]domain.JobLogLine, error)

	// SaveMapping persists the Mapping Configuration alongside the job
	// (DESIGN.md Open Question #2: the worker re-reads it by job id).
	SaveMapping(ctx context.Context, id string, mapping domain.MappingConfig) error

	// Mapping retrieves the persisted Mapping Configuration for a job.
	// Returns ErrMappingNotFound if none was saved (the fixed vehicle
	// preset is used as a fallback by the caller in that case).
	Mapping(ctx context.Context, id string) (domain.MappingConfig, error)

	// Purge permanently deletes a job and its logs (explicit administrative
	// operation; spec.md §3 "destroyed only by explicit administrative purge").
	Purge(ctx context.Context, id string) error
}
