package domain

import "time"

// JobStatus is the lifecycle state of an import Job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status can no longer transition.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is one ingestion of one uploaded file.
//
// Counters are mutated only by the row processor; started_at/finished_at
// follow the invariants in spec.md §3: started_at is set iff the job has
// ever entered PROCESSING, finished_at is set iff the job is terminal.
type Job struct {
	ID            string     `json:"job_id" db:"id"`
	Filename      string     `json:"filename" db:"filename"`
	Status        JobStatus  `json:"status" db:"status"`
	TotalRows     *int64     `json:"total_rows,omitempty" db:"total_rows"`
	ProcessedRows int64      `json:"processed_rows" db:"processed_rows"`
	ErrorRows     int64      `json:"error_rows" db:"error_rows"`
	StartedAt     *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// LogLevel is the severity of a JobLogLine.
type LogLevel string

const (
	LogInfo    LogLevel = "INFO"
	LogWarning LogLevel = "WARNING"
	LogError   LogLevel = "ERROR"
)

// JobLogLine is one append-only entry in a Job's log. Never mutated.
type JobLogLine struct {
	ID        int64     `json:"id" db:"id"`
	JobID     string    `json:"job_id" db:"job_id"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// JobSummary is the projection returned by list/get endpoints.
type JobSummary struct {
	Job
	Logs []JobLogLine `json:"logs,omitempty"`
}
