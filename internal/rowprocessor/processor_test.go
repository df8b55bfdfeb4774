package rowprocessor_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/eventbus"
	"github.com/rowforge/tabular-import/internal/repository/postgres"
	"github.com/rowforge/tabular-import/internal/rowprocessor"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/spreadsheet"
)

var sqlmockTestErr = errors.New("connection reset")

// memJobs is an in-memory importjob.Repository fake, in the style of the
// teacher's service/campaign memRepo.
type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	logs map[string][]domain.JobLogLine
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.Job), logs: make(map[string][]domain.JobLogLine)}
}

func (m *memJobs) put(j *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
}

func (m *memJobs) Create(ctx context.Context, filename string) (*domain.Job, error) {
	return nil, nil
}

func (m *memJobs) Get(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, importjob.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) List(ctx context.Context, f importjob.ListFilter) ([]domain.Job, error) {
	return nil, nil
}

func (m *memJobs) SetTotalRows(ctx context.Context, id string, total int64) error { return nil }

func (m *memJobs) TransitionProcessing(ctx context.Context, id string) (bool, error) { return true, nil }

func (m *memJobs) TransitionCompleted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = domain.JobCompleted
	return nil
}

func (m *memJobs) TransitionFailed(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = domain.JobFailed
	return nil
}

func (m *memJobs) IncrementCounters(ctx context.Context, id string, processedDelta, errorDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].ProcessedRows += processedDelta
	m.jobs[id].ErrorRows += errorDelta
	return nil
}

func (m *memJobs) AppendLog(ctx context.Context, id string, level domain.LogLevel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[id] = append(m.logs[id], domain.JobLogLine{JobID: id, Level: level, Message: message})
	return nil
}

func (m *memJobs) Logs(ctx context.Context, id string) ([]domain.JobLogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logs[id], nil
}

func (m *memJobs) SaveMapping(ctx context.Context, id string, mapping domain.MappingConfig) error {
	return nil
}

func (m *memJobs) Mapping(ctx context.Context, id string) (domain.MappingConfig, error) {
	return domain.MappingConfig{}, importjob.ErrMappingNotFound
}

func (m *memJobs) Purge(ctx context.Context, id string) error { return nil }

var _ importjob.Repository = (*memJobs)(nil)

func csvOpener(contents string) spreadsheet.Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(contents)), nil
	}
}

func TestProcessorProcessInsertsAndSkipsDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	writer := postgres.NewTableWriter(db)
	jobs := newMemJobs()
	bus := eventbus.New()
	proc := rowprocessor.New(jobs, writer, bus, nil, 0)

	job := &domain.Job{ID: "job-1", Filename: "vehicles.csv", Status: domain.JobProcessing}
	jobs.put(job)

	mapping := domain.VehiclePreset() // CreateTable=false, unique on placa

	sub := bus.Subscribe(job.ID)
	defer sub.Close()

	// Two distinct rows, then a third repeating the first plate (intra-file dup).
	contents := "modelo,placa,ano,valor_fipe\n" +
		"Civic,ABC1D23,2020,80000\n" +
		"Corolla,XYZ9A88,2019,75000\n" +
		"CivicAgain,ABC1D23,2020,80000\n"
	reader, err := spreadsheet.NewReader("vehicles.csv", csvOpener(contents))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	mock.ExpectQuery(`SELECT "placa" FROM "vehicles" WHERE \("placa"\) IN`).
		WillReturnRows(sqlmock.NewRows([]string{"placa"}))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT sp_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "vehicles"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT sp_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "vehicles"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := proc.Process(context.Background(), job, mapping, reader, 10); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := jobs.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != domain.JobCompleted {
		t.Fatalf("expected job completed, got %s", got.Status)
	}
	// 2 rows actually reach the writer and commit; the third repeats the
	// first plate and is rejected as an intra-file duplicate.
	if got.ProcessedRows != 2 {
		t.Fatalf("expected 2 processed rows, got %d", got.ProcessedRows)
	}
	if got.ErrorRows != 1 {
		t.Fatalf("expected 1 error row for the duplicate, got %d", got.ErrorRows)
	}

	logs, _ := jobs.Logs(context.Background(), job.ID)
	foundDupWarning := false
	for _, l := range logs {
		if l.Level == domain.LogWarning && strings.Contains(l.Message, "duplicate key within file") {
			foundDupWarning = true
		}
	}
	if !foundDupWarning {
		t.Fatalf("expected a duplicate-key warning log, got %+v", logs)
	}

	evt, ok := sub.Next(time.Second)
	if !ok {
		t.Fatal("expected at least one event on the job's subscription")
	}
	sawStatusCompleted := evt.Type == domain.EventStatusUpdate
	for !sawStatusCompleted {
		evt, ok = sub.Next(100 * time.Millisecond)
		if !ok {
			t.Fatal("expected a status_update event for completion")
		}
		sawStatusCompleted = evt.Type == domain.EventStatusUpdate
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessorProcessFailsOnRowProcessorError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	writer := postgres.NewTableWriter(db)
	jobs := newMemJobs()
	bus := eventbus.New()
	proc := rowprocessor.New(jobs, writer, bus, nil, 0)

	job := &domain.Job{ID: "job-2", Filename: "vehicles.csv", Status: domain.JobProcessing}
	jobs.put(job)

	mapping := domain.VehiclePreset()

	// ProbeExisting errors out, which should abort the chunk and fail the job.
	mock.ExpectQuery(`SELECT "placa" FROM "vehicles"`).
		WillReturnError(sqlmockTestErr)

	contents := "modelo,placa,ano,valor_fipe\nCivic,ABC1D23,2020,80000\n"
	reader, _ := spreadsheet.NewReader("vehicles.csv", csvOpener(contents))

	if err := proc.Process(context.Background(), job, mapping, reader, 10); err == nil {
		t.Fatal("expected Process to surface the probe error")
	}

	got, _ := jobs.Get(context.Background(), job.ID)
	if got.Status != domain.JobFailed {
		t.Fatalf("expected job failed, got %s", got.Status)
	}
}
