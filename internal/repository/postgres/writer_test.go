package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/repository/postgres"
)

var errDupKeyViolation = errors.New("duplicate key value violates unique constraint")

func newMockWriter(t *testing.T) (*postgres.TableWriter, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return postgres.NewTableWriter(db), mock, func() { db.Close() }
}

func TestEnsureTableSkippedWhenCreateTableFalse(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	err := w.EnsureTable(context.Background(), domain.MappingConfig{CreateTable: false})
	if err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no SQL, got: %v", err)
	}
}

func TestEnsureTableIssuesCreate(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "vehicles"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mapping := domain.VehiclePreset()
	mapping.CreateTable = true
	if err := w.EnsureTable(context.Background(), mapping); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBulkWriteCountsInsertedSkippedFailed(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	mock.ExpectBegin()

	// row 0: inserted
	mock.ExpectExec(`SAVEPOINT sp_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "vehicles"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT sp_0`).WillReturnResult(sqlmock.NewResult(0, 0))

	// row 1: conflicted, skipped
	mock.ExpectExec(`SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "vehicles"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`RELEASE SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))

	// row 2: fails, rolled back to savepoint
	mock.ExpectExec(`SAVEPOINT sp_2`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "vehicles"`).WillReturnError(errDupKeyViolation)
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT sp_2`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	rows := [][]interface{}{
		{"Civic", "ABC1D23", 2020, "80000"},
		{"Corolla", "XYZ9A88", 2019, "75000"},
		{"Onix", "QQQ1A11", 2018, "60000"},
	}
	result, err := w.BulkWrite(context.Background(), "vehicles",
		[]string{"modelo", "placa", "ano", "valor_fipe"}, []string{"placa"}, rows)
	if err != nil {
		t.Fatalf("bulk write: %v", err)
	}
	if result.Inserted != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBulkWriteEmptyIsNoop(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	result, err := w.BulkWrite(context.Background(), "vehicles", []string{"placa"}, []string{"placa"}, nil)
	if err != nil {
		t.Fatalf("bulk write: %v", err)
	}
	if result.Inserted != 0 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no SQL, got: %v", err)
	}
}

func TestResolveFKCreatesOnMissing(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM "brands" WHERE "name" = \$1`).
		WithArgs("Honda").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO "brands"`).
		WithArgs("Honda").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := w.ResolveFK(context.Background(), domain.FKMapping{
		Table: "brands", LookupColumn: "name", OnMissing: domain.OnMissingCreate,
	}, "Honda")
	if err != nil {
		t.Fatalf("resolve fk: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
}

func TestResolveFKIgnoreOnMissing(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM "brands"`).
		WithArgs("Ghost").
		WillReturnError(sql.ErrNoRows)

	id, err := w.ResolveFK(context.Background(), domain.FKMapping{
		Table: "brands", LookupColumn: "name", OnMissing: domain.OnMissingIgnore,
	}, "Ghost")
	if err != nil {
		t.Fatalf("resolve fk: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected id 0, got %d", id)
	}
}

func TestResolveFKErrorOnMissing(t *testing.T) {
	w, mock, cleanup := newMockWriter(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM "brands"`).
		WithArgs("Ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := w.ResolveFK(context.Background(), domain.FKMapping{
		Table: "brands", LookupColumn: "name", OnMissing: domain.OnMissingError,
	}, "Ghost")
	if err == nil {
		t.Fatal("expected an error for a missing fk with OnMissingError")
	}
}
