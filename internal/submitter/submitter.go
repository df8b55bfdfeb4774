package submitter

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/queue"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/spreadsheet"
	"github.com/rowforge/tabular-import/internal/staging"
)

// Submitter implements the submit operation (spec.md §4.1).
type Submitter struct {
	jobs           importjob.Repository
	store          staging.Store
	queue          queue.Queue
	maxUploadBytes int64
}

// New builds a Submitter. maxUploadBytes is spec.md §6's MAX_UPLOAD_BYTES.
func New(jobs importjob.Repository, store staging.Store, q queue.Queue, maxUploadBytes int64) *Submitter {
	return &Submitter{jobs: jobs, store: store, queue: q, maxUploadBytes: maxUploadBytes}
}

// Submit stages r under a new Job, validates its header against mapping,
// counts its rows, and hands the job id to the Work Queue. If mapping is
// nil, the built-in vehicle preset is used (spec.md §8).
func (s *Submitter) Submit(ctx context.Context, filename string, r io.Reader, mapping *domain.MappingConfig) (*domain.Job, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}

	resolved := domain.VehiclePreset()
	if mapping != nil {
		resolved = *mapping
	}
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("submit %s: %w", filename, err)
	}

	job, err := s.jobs.Create(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("create job for %s: %w", filename, err)
	}

	if err := s.jobs.SaveMapping(ctx, job.ID, resolved); err != nil {
		return nil, fmt.Errorf("save mapping for job %s: %w", job.ID, err)
	}

	limited := io.LimitReader(r, s.maxUploadBytes+1)
	n, err := s.store.Put(ctx, job.ID, limited)
	if err != nil {
		return nil, fmt.Errorf("stage upload for job %s: %w", job.ID, err)
	}
	if n > s.maxUploadBytes {
		return nil, s.abort(ctx, job.ID, ErrFileTooLarge)
	}

	opener := func() (io.ReadCloser, error) { return s.store.Open(ctx, job.ID) }
	reader, err := spreadsheet.NewReader(filename, opener)
	if err != nil {
		return nil, s.abort(ctx, job.ID, fmt.Errorf("select reader for job %s: %w", job.ID, err))
	}

	header, err := reader.Header()
	if err != nil {
		return nil, s.abort(ctx, job.ID, fmt.Errorf("read header for job %s: %w", job.ID, err))
	}
	if err := requireColumns(header, resolved.RequiredColumns()); err != nil {
		return nil, s.abort(ctx, job.ID, fmt.Errorf("job %s: %w", job.ID, err))
	}

	total, err := reader.CountRows()
	if err != nil {
		return nil, s.abort(ctx, job.ID, fmt.Errorf("count rows for job %s: %w", job.ID, err))
	}
	if err := s.jobs.SetTotalRows(ctx, job.ID, total); err != nil {
		return nil, s.abort(ctx, job.ID, fmt.Errorf("set total rows for job %s: %w", job.ID, err))
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		return nil, s.abort(ctx, job.ID, fmt.Errorf("enqueue job %s: %w", job.ID, err))
	}

	job.TotalRows = &total
	return job, nil
}

// abort tears down a staged file and its Job Store row after an intake
// failure past the point where both were created, so a bad upload never
// leaves a zombie PENDING job with no file behind it. Returns cause
// unchanged for the caller to propagate.
func (s *Submitter) abort(ctx context.Context, jobID string, cause error) error {
	s.store.Delete(ctx, jobID)
	s.jobs.Purge(ctx, jobID)
	return cause
}

// requireColumns validates the header per spec.md §4.4: case-insensitive
// exact match after trimming.
func requireColumns(header []string, required []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[normalizeHeader(h)] = true
	}
	var missing []string
	for _, col := range required {
		if !present[normalizeHeader(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredColumn, strings.Join(missing, ", "))
	}
	return nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
