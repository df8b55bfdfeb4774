// Package queue implements the Work Queue (spec.md §2.3): a durable,
// at-least-once delivery channel carrying job ids from the submitter to the
// worker.
//
// Grounded on the teacher's internal/tracking/{publisher,consumer}.go: an
// SQS producer/long-poll consumer pair using aws-sdk-go-v2. Generalized here
// from a fire-and-forget tracking-event publisher into a request/ack queue
// the worker must explicitly Delete to acknowledge, since job ingestion
// cannot tolerate the teacher's silent best-effort send.
package queue
