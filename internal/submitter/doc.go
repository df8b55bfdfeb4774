// Package submitter implements the submit operation (spec.md §2.1, §4.1):
// accept an uploaded file, stage it, record a PENDING Job, count its rows,
// and enqueue it for the worker.
//
// Grounded on the teacher's internal/worker/list_upload.go
// ProcessDirectUpload (validate -> persist to disk -> create job row ->
// hand off for processing), generalized from a single CSV-only,
// mailing-list-scoped flow into a format-agnostic submit usable from the
// HTTP transport layer.
package submitter
