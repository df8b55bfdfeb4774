package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/pkg/httputil"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/submitter"
)

// maxMultipartMemory caps how much of a multipart upload is buffered in
// memory before spilling to a temp file; the staged copy is the real
// durable copy (spec.md §4.1).
const maxMultipartMemory = 32 << 20

// SubmitImport handles POST /imports: a multipart file upload with an
// optional "mapping" field carrying a JSON-encoded MappingConfig.
func (h *Handlers) SubmitImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	var mapping *domain.MappingConfig
	if raw := r.FormValue("mapping"); raw != "" {
		mapping = &domain.MappingConfig{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			httputil.BadRequest(w, "invalid mapping JSON: "+err.Error())
			return
		}
	}

	job, err := h.submit.Submit(r.Context(), header.Filename, file, mapping)
	if err != nil {
		switch {
		case errors.Is(err, submitter.ErrFileTooLarge),
			errors.Is(err, submitter.ErrEmptyFilename),
			errors.Is(err, submitter.ErrMissingRequiredColumn):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}

	httputil.Created(w, job)
}

// ListImports handles GET /imports?status=&skip=&limit=.
func (h *Handlers) ListImports(w http.ResponseWriter, r *http.Request) {
	f := importjob.ListFilter{Status: domain.JobStatus(r.URL.Query().Get("status"))}
	if skip := r.URL.Query().Get("skip"); skip != "" {
		f.Skip, _ = strconv.Atoi(skip)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		f.Limit, _ = strconv.Atoi(limit)
	}

	jobs, err := h.jobs.List(r.Context(), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, jobs)
}

// GetImport handles GET /imports/{jobID}, returning the job plus its log.
func (h *Handlers) GetImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, importjob.ErrNotFound) {
			httputil.NotFound(w, "import job not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	logs, err := h.jobs.Logs(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, domain.JobSummary{Job: *job, Logs: logs})
}

// PurgeImport handles DELETE /imports/{jobID} (the administrative purge
// operation supplemented in SPEC_FULL.md §7).
func (h *Handlers) PurgeImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	if err := h.jobs.Purge(r.Context(), id); err != nil {
		if errors.Is(err, importjob.ErrNotFound) {
			httputil.NotFound(w, "import job not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListFields handles GET /imports/fields: the built-in vehicle preset's
// column definitions, so a client can build a mapping UI without
// hard-coding the schema (SPEC_FULL.md §7).
func (h *Handlers) ListFields(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, domain.VehiclePreset().Columns)
}

// DownloadTemplate handles GET /imports/template: a ready-to-fill CSV with
// just the header row for the built-in vehicle preset (SPEC_FULL.md §7,
// grounded on the teacher's import_templates.go template downloads).
func (h *Handlers) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	preset := domain.VehiclePreset()
	header := preset.RequiredColumns()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="import_template.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		httputil.InternalError(w, err)
		return
	}
	cw.Flush()
}
