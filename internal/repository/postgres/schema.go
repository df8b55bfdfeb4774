package postgres

// Schema is the DDL for the Job Store. Callers are expected to run this
// once at startup (see cmd/importd/main.go); it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS import_jobs (
	id             UUID PRIMARY KEY,
	filename       TEXT NOT NULL,
	status         TEXT NOT NULL,
	total_rows     BIGINT,
	processed_rows BIGINT NOT NULL DEFAULT 0,
	error_rows     BIGINT NOT NULL DEFAULT 0,
	mapping_config JSONB,
	started_at     TIMESTAMPTZ,
	finished_at    TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS import_job_logs (
	id         BIGSERIAL PRIMARY KEY,
	job_id     UUID NOT NULL REFERENCES import_jobs(id) ON DELETE CASCADE,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS import_job_logs_job_id_idx ON import_job_logs (job_id, id);
CREATE INDEX IF NOT EXISTS import_jobs_status_created_at_idx ON import_jobs (status, created_at DESC);
`
