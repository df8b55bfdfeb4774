package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rowforge/tabular-import/internal/domain"
)

// StreamJob handles GET /imports/{jobID}/stream: SSE scoped to one job.
func (h *Handlers) StreamJob(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, chi.URLParam(r, "jobID"))
}

// StreamAll handles GET /imports/stream: SSE across every job (spec.md
// §4.6 "every subscription on __all__").
func (h *Handlers) StreamAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "")
}

// stream is the SSE loop shared by StreamJob/StreamAll, grounded on the
// teacher's internal/api/websocket_hub.go HandleSSE: text/event-stream
// headers, http.Flusher, a per-client subscription the bus writes to
// non-blockingly. A heartbeat comment keeps idle connections open across
// proxies that time out a silent stream (spec.md §6 SSE_HEARTBEAT_SEC).
func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, jobID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.bus.Subscribe(jobID)
	defer sub.Close()

	// spec.md §6: "MUST send an initial snapshot event ... with current
	// state if job_id is supplied" — flush the job's current row before
	// the generic connected event so a subscriber to an already-terminal
	// job still learns its outcome.
	if jobID != "" {
		if job, err := h.jobs.Get(r.Context(), jobID); err == nil {
			writeEvent(w, domain.Event{Type: domain.EventStatusUpdate, Data: domain.StatusUpdateData{
				JobID: job.ID, Status: job.Status, StartedAt: job.StartedAt, FinishedAt: job.FinishedAt,
				TotalRows: job.TotalRows, ProcessedRows: job.ProcessedRows, ErrorRows: job.ErrorRows,
			}})
		}
	}

	writeEvent(w, domain.Event{Type: domain.EventConnected, Data: domain.ConnectedEventData{JobID: jobID}})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		evt, ok := sub.Next(h.sseHeartbeat)
		if !ok {
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
			continue
		}

		if err := writeEvent(w, evt); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, evt domain.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + string(evt.Type) + "\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
