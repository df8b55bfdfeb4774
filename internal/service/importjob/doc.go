// Package importjob defines the Job Store contract: the durable record of
// each import (spec.md §2.2, §3) and the repository interface the submitter,
// worker, and transport layer depend on.
//
// Repository implementations live in repository/postgres. This package
// itself holds no database handle — only the contract and sentinel errors,
// following the teacher's service/<domain>/{repository,errors,doc}.go split.
package importjob
