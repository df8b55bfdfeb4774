package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rowforge/tabular-import/internal/eventbus"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/submitter"
)

// Handlers holds the dependencies every route needs.
type Handlers struct {
	jobs         importjob.Repository
	submit       *submitter.Submitter
	bus          *eventbus.Bus
	sseHeartbeat time.Duration
}

// NewHandlers builds the Handlers set backing NewRouter.
func NewHandlers(jobs importjob.Repository, submit *submitter.Submitter, bus *eventbus.Bus, sseHeartbeat time.Duration) *Handlers {
	return &Handlers{jobs: jobs, submit: submit, bus: bus, sseHeartbeat: sseHeartbeat}
}

// NewRouter wires every import endpoint named in spec.md §4, plus the
// supplemented field-suggestion and template-download endpoints
// (SPEC_FULL.md §7).
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/imports", func(r chi.Router) {
		r.Post("/", h.SubmitImport)
		r.Get("/", h.ListImports)
		r.Get("/stream", h.StreamAll)
		r.Get("/fields", h.ListFields)
		r.Get("/template", h.DownloadTemplate)

		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", h.GetImport)
			r.Delete("/", h.PurgeImport)
			r.Get("/stream", h.StreamJob)
		})
	})

	return r
}

// HealthCheck reports liveness for readiness probes.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
