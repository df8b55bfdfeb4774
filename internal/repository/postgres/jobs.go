package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/service/importjob"
)

// JobRepo implements importjob.Repository against PostgreSQL.
type JobRepo struct{ db *sql.DB }

// NewJobRepo creates a Postgres-backed Job Store.
func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{db: db} }

var _ importjob.Repository = (*JobRepo)(nil)

func (r *JobRepo) Create(ctx context.Context, filename string) (*domain.Job, error) {
	j := &domain.Job{
		ID:       uuid.New().String(),
		Filename: filename,
		Status:   domain.JobPending,
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO import_jobs (id, filename, status)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, j.ID, j.Filename, j.Status).Scan(&j.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	return j, nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.Job, error) {
	j := &domain.Job{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, filename, status, total_rows, processed_rows, error_rows,
		       started_at, finished_at, created_at
		FROM import_jobs
		WHERE id = $1
	`, id).Scan(
		&j.ID, &j.Filename, &j.Status, &j.TotalRows, &j.ProcessedRows, &j.ErrorRows,
		&j.StartedAt, &j.FinishedAt, &j.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, importjob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return j, nil
}

func (r *JobRepo) List(ctx context.Context, f importjob.ListFilter) ([]domain.Job, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT id, filename, status, total_rows, processed_rows, error_rows,
		       started_at, finished_at, created_at
		FROM import_jobs`
	args := []interface{}{}
	idx := 1
	if f.Status != "" {
		q += fmt.Sprintf(" WHERE status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Skip)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(
			&j.ID, &j.Filename, &j.Status, &j.TotalRows, &j.ProcessedRows, &j.ErrorRows,
			&j.StartedAt, &j.FinishedAt, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepo) SetTotalRows(ctx context.Context, id string, total int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs SET total_rows = $2 WHERE id = $1
	`, id, total)
	return r.mustAffectOne(res, err, importjob.ErrNotFound)
}

func (r *JobRepo) TransitionProcessing(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, started_at = now()
		WHERE id = $1 AND status = $3
	`, id, domain.JobProcessing, domain.JobPending)
	if err != nil {
		return false, fmt.Errorf("transition to processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition to processing: %w", err)
	}
	return n == 1, nil
}

func (r *JobRepo) TransitionCompleted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, finished_at = now()
		WHERE id = $1 AND status NOT IN ($3, $4)
	`, id, domain.JobCompleted, domain.JobCompleted, domain.JobFailed)
	return r.mustAffectOne(res, err, importjob.ErrInvalidTransition)
}

func (r *JobRepo) TransitionFailed(ctx context.Context, id string, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = $2, finished_at = now()
		WHERE id = $1 AND status NOT IN ($3, $4)
	`, id, domain.JobFailed, domain.JobCompleted, domain.JobFailed)
	if err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	} else if n != 1 {
		return importjob.ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO import_job_logs (job_id, level, message) VALUES ($1, $2, $3)
	`, id, domain.LogError, reason); err != nil {
		return fmt.Errorf("transition to failed: append log: %w", err)
	}

	return tx.Commit()
}

func (r *JobRepo) IncrementCounters(ctx context.Context, id string, processedDelta, errorDelta int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET processed_rows = processed_rows + $2,
		    error_rows     = error_rows + $3
		WHERE id = $1
	`, id, processedDelta, errorDelta)
	return r.mustAffectOne(res, err, importjob.ErrNotFound)
}

func (r *JobRepo) AppendLog(ctx context.Context, id string, level domain.LogLevel, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_job_logs (job_id, level, message) VALUES ($1, $2, $3)
	`, id, level, message)
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	return nil
}

func (r *JobRepo) Logs(ctx context.Context, id string) ([]domain.JobLogLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, level, message, created_at
		FROM import_job_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list job logs: %w", err)
	}
	defer rows.Close()

	var out []domain.JobLogLine
	for rows.Next() {
		var l domain.JobLogLine
		if err := rows.Scan(&l.ID, &l.JobID, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *JobRepo) SaveMapping(ctx context.Context, id string, mapping domain.MappingConfig) error {
	raw, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping config: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_jobs SET mapping_config = $2 WHERE id = $1
	`, id, raw)
	return r.mustAffectOne(res, err, importjob.ErrNotFound)
}

func (r *JobRepo) Mapping(ctx context.Context, id string) (domain.MappingConfig, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT mapping_config FROM import_jobs WHERE id = $1
	`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.MappingConfig{}, importjob.ErrNotFound
	}
	if err != nil {
		return domain.MappingConfig{}, fmt.Errorf("get mapping config: %w", err)
	}
	if raw == nil {
		return domain.MappingConfig{}, importjob.ErrMappingNotFound
	}
	var m domain.MappingConfig
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.MappingConfig{}, fmt.Errorf("unmarshal mapping config: %w", err)
	}
	return m, nil
}

func (r *JobRepo) Purge(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM import_jobs WHERE id = $1`, id)
	return r.mustAffectOne(res, err, importjob.ErrNotFound)
}

func (r *JobRepo) mustAffectOne(res sql.Result, err error, notFound error) error {
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("postgres error %s: %w", pqErr.Code, err)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
