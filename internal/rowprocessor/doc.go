// Package rowprocessor implements the Row Processor (spec.md §2.5): the
// per-chunk pipeline that turns raw spreadsheet rows into target-table
// writes, with coercion, validation, FK resolution, intra-chunk and
// cross-file dedup, and throttled progress reporting.
//
// The dedup/validate/batch-write shape is grounded on the teacher's
// internal/worker/list_upload.go processCSVStreaming (seenEmails set,
// per-batch insert, periodic progress flush); counter serialization across
// concurrent redeliveries uses internal/pkg/distlock the way the teacher
// reserves it for cross-host coordination, generalized here to a per-job
// advisory lock instead of a per-campaign-send lock.
package rowprocessor
