// Package http implements the HTTP transport (spec.md §2, §4): the
// POST/GET/DELETE endpoints over imports, and the SSE stream that lets a
// client watch a job's progress live.
//
// Routing and JSON helpers follow the teacher's go-chi/chi/v5 +
// internal/pkg/httputil idiom (see internal/api/import_templates.go). The
// SSE handler is grounded on internal/api/websocket_hub.go's HandleSSE:
// http.Flusher, text/event-stream headers, a per-client channel the
// publisher writes to non-blockingly - adapted here to read from
// eventbus.Bus instead of a pg_notify broadcast channel, and to add a
// heartbeat comment so idle connections survive intermediary timeouts
// (spec.md §6 SSE_HEARTBEAT_SEC).
package http
