package submitter_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/queue"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/staging"
	"github.com/rowforge/tabular-import/internal/submitter"
)

// memJobs is a minimal in-memory importjob.Repository fake covering only
// what Submit exercises.
type memJobs struct {
	mu      sync.Mutex
	next    int
	jobs    map[string]*domain.Job
	mapping map[string]domain.MappingConfig
	purged  map[string]bool
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.Job), mapping: make(map[string]domain.MappingConfig), purged: make(map[string]bool)}
}

func (m *memJobs) Create(ctx context.Context, filename string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("job-%d", m.next)
	j := &domain.Job{ID: id, Filename: filename, Status: domain.JobPending}
	m.jobs[id] = j
	return j, nil
}

func (m *memJobs) Get(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, importjob.ErrNotFound
	}
	return j, nil
}

func (m *memJobs) List(ctx context.Context, f importjob.ListFilter) ([]domain.Job, error) {
	return nil, nil
}

func (m *memJobs) SetTotalRows(ctx context.Context, id string, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].TotalRows = &total
	return nil
}

func (m *memJobs) TransitionProcessing(ctx context.Context, id string) (bool, error) { return true, nil }
func (m *memJobs) TransitionCompleted(ctx context.Context, id string) error          { return nil }
func (m *memJobs) TransitionFailed(ctx context.Context, id string, reason string) error {
	return nil
}
func (m *memJobs) IncrementCounters(ctx context.Context, id string, processedDelta, errorDelta int64) error {
	return nil
}
func (m *memJobs) AppendLog(ctx context.Context, id string, level domain.LogLevel, message string) error {
	return nil
}
func (m *memJobs) Logs(ctx context.Context, id string) ([]domain.JobLogLine, error) { return nil, nil }

func (m *memJobs) SaveMapping(ctx context.Context, id string, mapping domain.MappingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapping[id] = mapping
	return nil
}

func (m *memJobs) Mapping(ctx context.Context, id string) (domain.MappingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.mapping[id]
	if !ok {
		return domain.MappingConfig{}, importjob.ErrMappingNotFound
	}
	return mc, nil
}

func (m *memJobs) Purge(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged[id] = true
	delete(m.jobs, id)
	return nil
}

var _ importjob.Repository = (*memJobs)(nil)

const validCSV = "modelo,placa,ano,valor_fipe\nCivic,ABC1D23,2020,80000\nCorolla,XYZ9A88,2019,75000\n"

func TestSubmitStagesValidatesCountsAndEnqueues(t *testing.T) {
	jobs := newMemJobs()
	store, err := staging.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	q := queue.NewMemoryQueue()
	s := submitter.New(jobs, store, q, 10<<20)

	job, err := s.Submit(context.Background(), "vehicles.csv", strings.NewReader(validCSV), nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.TotalRows == nil || *job.TotalRows != 2 {
		t.Fatalf("expected 2 total rows, got %v", job.TotalRows)
	}

	msgs, err := q.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 1 || msgs[0].JobID != job.ID {
		t.Fatalf("expected the job enqueued, got %+v", msgs)
	}
}

func TestSubmitEmptyFilename(t *testing.T) {
	jobs := newMemJobs()
	store, _ := staging.NewLocalStore(t.TempDir())
	s := submitter.New(jobs, store, queue.NewMemoryQueue(), 10<<20)

	_, err := s.Submit(context.Background(), "", strings.NewReader(validCSV), nil)
	if !errors.Is(err, submitter.ErrEmptyFilename) {
		t.Fatalf("expected ErrEmptyFilename, got %v", err)
	}
}

func TestSubmitMissingRequiredColumn(t *testing.T) {
	jobs := newMemJobs()
	dir := t.TempDir()
	store, _ := staging.NewLocalStore(dir)
	s := submitter.New(jobs, store, queue.NewMemoryQueue(), 10<<20)

	badCSV := "modelo,ano,valor_fipe\nCivic,2020,80000\n" // no placa column
	_, err := s.Submit(context.Background(), "vehicles.csv", strings.NewReader(badCSV), nil)
	if !errors.Is(err, submitter.ErrMissingRequiredColumn) {
		t.Fatalf("expected ErrMissingRequiredColumn, got %v", err)
	}
	if len(jobs.jobs) != 0 {
		t.Fatalf("expected the job to be purged after a header mismatch, got %d remaining", len(jobs.jobs))
	}
	if _, err := os.Stat(filepath.Join(dir, "job-1")); !os.IsNotExist(err) {
		t.Fatalf("expected the staged file to be deleted after a header mismatch, stat err=%v", err)
	}
}

func TestSubmitFileTooLargePurgesJobAndStagedFile(t *testing.T) {
	jobs := newMemJobs()
	dir := t.TempDir()
	store, _ := staging.NewLocalStore(dir)
	s := submitter.New(jobs, store, queue.NewMemoryQueue(), 10) // tiny cap

	_, err := s.Submit(context.Background(), "vehicles.csv", strings.NewReader(validCSV), nil)
	if !errors.Is(err, submitter.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if len(jobs.jobs) != 0 {
		t.Fatalf("expected the job to be purged, got %d remaining", len(jobs.jobs))
	}
	if _, err := os.Stat(filepath.Join(dir, "job-1")); !os.IsNotExist(err) {
		t.Fatalf("expected the staged file to be deleted after an oversize upload, stat err=%v", err)
	}
}

func TestSubmitCustomMappingIsValidated(t *testing.T) {
	jobs := newMemJobs()
	store, _ := staging.NewLocalStore(t.TempDir())
	s := submitter.New(jobs, store, queue.NewMemoryQueue(), 10<<20)

	badMapping := &domain.MappingConfig{} // no target table, no columns
	_, err := s.Submit(context.Background(), "vehicles.csv", strings.NewReader(validCSV), badMapping)
	if err == nil {
		t.Fatal("expected an error for an invalid mapping")
	}
}
