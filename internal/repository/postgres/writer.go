package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rowforge/tabular-import/internal/domain"
)

// TableWriter bulk-loads coerced rows into a caller-named target table.
//
// Grounded on the teacher's internal/worker/list_upload.go insertBatch: a
// single transaction per chunk, one statement per row with
// ON CONFLICT ... DO NOTHING for idempotent dedup, generalized here to a
// dynamic table/column set instead of the fixed mailing_subscribers shape.
// Each row runs inside its own SAVEPOINT so one bad row (an FK miss, a
// constraint violation the coercion step couldn't catch) doesn't abort
// the whole chunk.
type TableWriter struct{ db *sql.DB }

// NewTableWriter creates a writer bound to the target-table connection.
func NewTableWriter(db *sql.DB) *TableWriter { return &TableWriter{db: db} }

func sqlType(t domain.ColumnType) string {
	switch t {
	case domain.ColInt, domain.ColFK:
		return "BIGINT"
	case domain.ColFloat:
		return "DOUBLE PRECISION"
	case domain.ColDecimal:
		return "NUMERIC"
	case domain.ColDate:
		return "DATE"
	case domain.ColDatetime:
		return "TIMESTAMPTZ"
	case domain.ColBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// EnsureTable creates the target table if mapping.CreateTable is set and it
// doesn't already exist, with a UNIQUE constraint over the mapped unique
// columns so ON CONFLICT DO NOTHING has a constraint to target.
func (w *TableWriter) EnsureTable(ctx context.Context, mapping domain.MappingConfig) error {
	if !mapping.CreateTable {
		return nil
	}

	cols := make([]string, 0, len(mapping.Columns)+1)
	cols = append(cols, "id BIGSERIAL PRIMARY KEY")
	var unique []string
	for _, c := range mapping.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(c.DBColumn), sqlType(c.Type)))
		if c.Unique {
			unique = append(unique, quoteIdent(c.DBColumn))
		}
	}
	if len(unique) > 0 {
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", strings.Join(unique, ", ")))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(mapping.TargetTable), strings.Join(cols, ",\n\t"))
	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure target table %s: %w", mapping.TargetTable, err)
	}
	return nil
}

// ProbeExisting returns the subset of the given composite keys that already
// exist in the target table, for the cross-file duplicate check the row
// processor runs before writing a chunk.
func (w *TableWriter) ProbeExisting(ctx context.Context, table string, uniqueCols []string, keys [][]string) (map[string]bool, error) {
	found := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE (%s) IN (",
		strings.Join(quoteAll(uniqueCols), ", "), quoteIdent(table), strings.Join(quoteAll(uniqueCols), ", "))

	args := make([]interface{}, 0, len(keys)*len(uniqueCols))
	idx := 1
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, v := range key {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$" + strconv.Itoa(idx))
			args = append(args, v)
			idx++
		}
		sb.WriteString(")")
	}
	sb.WriteString(")")

	rows, err := w.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("probe existing keys in %s: %w", table, err)
	}
	defer rows.Close()

	scanDest := make([]interface{}, len(uniqueCols))
	scanBuf := make([]string, len(uniqueCols))
	for i := range scanBuf {
		scanDest[i] = &scanBuf[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("scan existing key in %s: %w", table, err)
		}
		found[strings.Join(scanBuf, "\x1f")] = true
	}
	return found, rows.Err()
}

// WriteResult reports what happened to one chunk of rows.
type WriteResult struct {
	Inserted int
	Skipped  int // conflicted with an existing unique key (expected, not an error)
	Failed   int // row errored for another reason (constraint, FK, etc.)
}

// BulkWrite inserts columns/rows into table inside one transaction, using a
// SAVEPOINT per row so a single bad row doesn't roll back the whole chunk.
// uniqueCols drives the ON CONFLICT ... DO NOTHING clause.
func (w *TableWriter) BulkWrite(ctx context.Context, table string, columns, uniqueCols []string, rows [][]interface{}) (WriteResult, error) {
	var result WriteResult
	if len(rows) == 0 {
		return result, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin chunk write: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	insertStmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		quoteIdent(table), strings.Join(quoteAll(columns), ", "), strings.Join(placeholders, ", "), strings.Join(quoteAll(uniqueCols), ", "),
	)

	for i, row := range rows {
		sp := "sp_" + strconv.Itoa(i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			return result, fmt.Errorf("savepoint: %w", err)
		}

		res, execErr := tx.ExecContext(ctx, insertStmt, row...)
		if execErr != nil {
			result.Failed++
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return result, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			continue
		}

		n, _ := res.RowsAffected()
		if n == 0 {
			result.Skipped++
		} else {
			result.Inserted++
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return result, fmt.Errorf("release savepoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit chunk write: %w", err)
	}
	return result, nil
}

// ResolveFK looks up id in lookupTable.lookupCol, optionally creating a row
// when it's missing and the mapping allows it (domain.OnMissingCreate).
func (w *TableWriter) ResolveFK(ctx context.Context, fk domain.FKMapping, value string) (int64, error) {
	var id int64
	err := w.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT id FROM %s WHERE %s = $1", quoteIdent(fk.Table), quoteIdent(fk.LookupColumn),
	), value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("resolve fk %s.%s: %w", fk.Table, fk.LookupColumn, err)
	}

	switch fk.OnMissing {
	case domain.OnMissingCreate:
		err := w.db.QueryRowContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES ($1) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s RETURNING id",
			quoteIdent(fk.Table), quoteIdent(fk.LookupColumn), quoteIdent(fk.LookupColumn), quoteIdent(fk.LookupColumn), quoteIdent(fk.LookupColumn),
		), value).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("create fk row in %s: %w", fk.Table, err)
		}
		return id, nil
	case domain.OnMissingIgnore:
		return 0, nil
	default:
		return 0, fmt.Errorf("fk lookup miss: %s=%q not found in %s", fk.LookupColumn, value, fk.Table)
	}
}

// quoteIdent quotes an identifier supplied by caller-controlled mapping
// configuration so it can't be used to break out of the generated SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}
