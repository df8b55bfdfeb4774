package rowprocessor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/eventbus"
	"github.com/rowforge/tabular-import/internal/pkg/distlock"
	"github.com/rowforge/tabular-import/internal/pkg/logger"
	"github.com/rowforge/tabular-import/internal/repository/postgres"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/spreadsheet"
)

// LockFactory builds a DistLock scoped to key, usually the job id. Counter
// updates acquire it best-effort: a lock that can't be acquired logs a
// warning and proceeds anyway, since the write itself (a single UPDATE with
// computed deltas) is already safe under concurrent callers - the lock
// exists to keep the throttled progress events in publish order, not to
// protect correctness.
type LockFactory func(key string) distlock.DistLock

// Processor runs the per-chunk pipeline for one job: coerce, validate,
// resolve FKs, dedup, write, report.
type Processor struct {
	jobs          importjob.Repository
	writer        *postgres.TableWriter
	bus           *eventbus.Bus
	newLock       LockFactory
	progressEvery time.Duration
}

// New builds a Processor. progressEvery is spec.md §6's
// PROGRESS_THROTTLE_MS, converted by the caller.
func New(jobs importjob.Repository, writer *postgres.TableWriter, bus *eventbus.Bus, newLock LockFactory, progressEvery time.Duration) *Processor {
	return &Processor{jobs: jobs, writer: writer, bus: bus, newLock: newLock, progressEvery: progressEvery}
}

type chunkState struct {
	seen     map[string]struct{}
	lastEmit time.Time
}

// Process runs a job to completion: ensures the target table exists, then
// streams the file in chunks through the pipeline, transitioning the job to
// COMPLETED or FAILED at the end.
func (p *Processor) Process(ctx context.Context, job *domain.Job, mapping domain.MappingConfig, reader spreadsheet.Reader, chunkSize int) error {
	if err := p.writer.EnsureTable(ctx, mapping); err != nil {
		p.fail(ctx, job.ID, err)
		return err
	}

	state := &chunkState{seen: make(map[string]struct{})}
	uniqueCols := mapping.UniqueColumns()

	err := reader.ReadChunks(chunkSize, func(rows []map[string]string) error {
		return p.processChunk(ctx, job, mapping, uniqueCols, rows, state)
	})
	if err != nil {
		p.fail(ctx, job.ID, err)
		return err
	}

	// spec.md §4.5 step 7: the final chunk's progress is always emitted
	// regardless of the throttle, so a subscriber never misses the last
	// counters between the last progress_update and the terminal status.
	p.emitProgress(ctx, job.ID)

	if err := p.jobs.TransitionCompleted(ctx, job.ID); err != nil {
		logger.Error("transition to completed failed", "job_id", job.ID, "error", err.Error())
		return err
	}
	p.bus.Publish(job.ID, domain.EventStatusUpdate, domain.StatusUpdateData{
		JobID: job.ID, Status: domain.JobCompleted,
	})
	return nil
}

func (p *Processor) fail(ctx context.Context, jobID string, cause error) {
	if err := p.jobs.TransitionFailed(ctx, jobID, cause.Error()); err != nil {
		logger.Error("transition to failed also failed", "job_id", jobID, "error", err.Error())
	}
	p.bus.Publish(jobID, domain.EventStatusUpdate, domain.StatusUpdateData{
		JobID: jobID, Status: domain.JobFailed,
	})
}

// preparedRow is a row that has cleared coercion, validation, and FK
// resolution, ready for a key probe and a write attempt.
type preparedRow struct {
	values []interface{}
	key    []string
}

func (p *Processor) processChunk(ctx context.Context, job *domain.Job, mapping domain.MappingConfig, uniqueCols []string, rows []map[string]string, state *chunkState) error {
	columns := make([]string, len(mapping.Columns))
	for i, c := range mapping.Columns {
		columns[i] = c.DBColumn
	}

	var prepared []preparedRow
	var errorCount int64

	for _, row := range rows {
		values, key, err := p.prepareRow(ctx, mapping, row)
		if err != nil {
			errorCount++
			p.logRow(ctx, job.ID, domain.LogError, err.Error())
			continue
		}

		keyStr := strings.Join(key, "\x1f")
		if _, dup := state.seen[keyStr]; dup {
			p.logRow(ctx, job.ID, domain.LogWarning, fmt.Sprintf("duplicate key within file: %s", keyStr))
			errorCount++
			continue
		}
		state.seen[keyStr] = struct{}{}

		prepared = append(prepared, preparedRow{values: values, key: key})
	}

	if len(prepared) > 0 && len(uniqueCols) > 0 {
		keys := make([][]string, len(prepared))
		for i, pr := range prepared {
			keys[i] = pr.key
		}
		existing, err := p.writer.ProbeExisting(ctx, mapping.TargetTable, uniqueCols, keys)
		if err != nil {
			return fmt.Errorf("probe existing rows: %w", err)
		}
		filtered := prepared[:0]
		for _, pr := range prepared {
			if existing[strings.Join(pr.key, "\x1f")] {
				p.logRow(ctx, job.ID, domain.LogWarning, fmt.Sprintf("duplicate key already in %s: %s", mapping.TargetTable, strings.Join(pr.key, ", ")))
				errorCount++
				continue
			}
			filtered = append(filtered, pr)
		}
		prepared = filtered
	}

	values := make([][]interface{}, len(prepared))
	for i, pr := range prepared {
		values[i] = pr.values
	}

	result, err := p.writer.BulkWrite(ctx, mapping.TargetTable, columns, uniqueCols, values)
	if err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	// Only rows the writer actually committed count as processed; a
	// conflict the ON CONFLICT clause swallowed (result.Skipped) or a
	// per-row write failure (result.Failed) is a rejection, not a success.
	errorCount += int64(result.Failed) + int64(result.Skipped)

	return p.reportProgress(ctx, job, int64(result.Inserted), errorCount, state)
}

// prepareRow coerces every mapped column, resolving FK columns against
// their lookup table, and returns the ordered db values plus the unique-key
// tuple used for dedup.
func (p *Processor) prepareRow(ctx context.Context, mapping domain.MappingConfig, row map[string]string) ([]interface{}, []string, error) {
	values := make([]interface{}, len(mapping.Columns))
	var key []string

	for i, col := range mapping.Columns {
		raw, ok := row[col.SourceColumn]
		if !ok && col.Required {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, col.SourceColumn)
		}

		value, err := coerce(col, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", col.SourceColumn, err)
		}

		if col.Type == domain.ColFK && col.FK != nil && value != nil {
			id, err := p.writer.ResolveFK(ctx, *col.FK, value.(string))
			if err != nil {
				return nil, nil, fmt.Errorf("column %s: %w", col.SourceColumn, err)
			}
			value = id
		}

		values[i] = value
		if col.Unique {
			key = append(key, fmt.Sprintf("%v", value))
		}
	}
	return values, key, nil
}

func (p *Processor) logRow(ctx context.Context, jobID string, level domain.LogLevel, message string) {
	if err := p.jobs.AppendLog(ctx, jobID, level, message); err != nil {
		logger.Warn("append job log failed", "job_id", jobID, "error", err.Error())
	}
	p.bus.Publish(jobID, domain.EventLog, domain.LogEventData{JobID: jobID, Level: level, Message: message, CreatedAt: time.Now()})
}

// reportProgress increments the durable counters and, throttled by
// progressEvery, publishes a progress_update event.
func (p *Processor) reportProgress(ctx context.Context, job *domain.Job, processedDelta, errorDelta int64, state *chunkState) error {
	lock := p.acquireCounterLock(ctx, job.ID)
	if lock != nil {
		defer lock.Release(ctx)
	}

	if err := p.jobs.IncrementCounters(ctx, job.ID, processedDelta, errorDelta); err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}

	if time.Since(state.lastEmit) < p.progressEvery {
		return nil
	}
	state.lastEmit = time.Now()
	p.emitProgress(ctx, job.ID)
	return nil
}

// emitProgress reloads the durable counters and publishes a progress_update
// unconditionally, bypassing the per-job throttle. Used for the chunk-level
// throttled path (via reportProgress) and for the unthrottled final emit.
func (p *Processor) emitProgress(ctx context.Context, jobID string) {
	current, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		logger.Warn("reload job for progress event failed", "job_id", jobID, "error", err.Error())
		return
	}
	p.bus.Publish(jobID, domain.EventProgressUpdate, domain.ProgressUpdateData{
		JobID: jobID, ProcessedRows: current.ProcessedRows, ErrorRows: current.ErrorRows, TotalRows: current.TotalRows,
	})
}

func (p *Processor) acquireCounterLock(ctx context.Context, jobID string) distlock.DistLock {
	if p.newLock == nil {
		return nil
	}
	lock := p.newLock(jobID)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		logger.Warn("counter lock unavailable, proceeding without it", "job_id", jobID)
		return nil
	}
	return lock
}
