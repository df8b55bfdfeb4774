// Package ingestworker implements the worker role (spec.md §2.6, §4.5):
// long-poll the Work Queue, load the staged file for each job, and drive it
// through the Row Processor.
//
// Grounded on the teacher's cmd/worker/main.go bootstrap (a poll loop
// launched as a goroutine, shut down on context cancellation) and
// internal/tracking/consumer.go's receive/process/delete cycle, generalized
// from a fire-and-forget tracking consumer into one that must transition
// job state and tolerate redelivery.
package ingestworker
