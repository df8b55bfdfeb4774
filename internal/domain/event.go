package domain

import "time"

// EventType names the kind of message the Event Bus carries (spec.md §4.6).
type EventType string

const (
	EventStatusUpdate   EventType = "status_update"
	EventProgressUpdate EventType = "progress_update"
	EventLog            EventType = "log"
	EventConnected      EventType = "connected"
)

// Event is an in-memory value published to and delivered by the Event Bus.
// Never persisted; lifetime is delivery to currently-attached subscribers.
type Event struct {
	JobID     string    `json:"job_id,omitempty"`
	Type      EventType `json:"event_type"`
	Data      any       `json:"data"`
	CreatedAt time.Time `json:"-"`
}

// StatusUpdateData is the payload shape for EventStatusUpdate.
type StatusUpdateData struct {
	JobID         string     `json:"job_id"`
	Status        JobStatus  `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	TotalRows     *int64     `json:"total_rows,omitempty"`
	ProcessedRows int64      `json:"processed_rows,omitempty"`
	ErrorRows     int64      `json:"error_rows,omitempty"`
}

// ProgressUpdateData is the payload shape for EventProgressUpdate.
type ProgressUpdateData struct {
	JobID         string `json:"job_id"`
	ProcessedRows int64  `json:"processed_rows"`
	ErrorRows     int64  `json:"error_rows"`
	TotalRows     *int64 `json:"total_rows,omitempty"`
}

// LogEventData is the payload shape for EventLog.
type LogEventData struct {
	JobID     string    `json:"job_id"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ConnectedEventData is the payload shape for EventConnected.
type ConnectedEventData struct {
	JobID string `json:"job_id,omitempty"`
}
