// Package postgres implements the Job Store contract (importjob.Repository)
// and the target-table writer against PostgreSQL using database/sql and
// github.com/lib/pq, following the teacher's
// internal/repository/postgres/campaign.go idiom: numbered placeholders,
// sql.ErrNoRows translated to a package sentinel, fmt.Errorf("%w") wrapping
// on every query.
package postgres
