package queue

import "context"

// Message is one delivery of a job id. ReceiptHandle identifies this
// particular delivery attempt and must be passed back to Delete to
// acknowledge it (spec.md §4.5: "at-least-once delivery... worker must be
// idempotent").
type Message struct {
	JobID         string
	ReceiptHandle string
}

// Queue is the Work Queue contract used by the submitter (producer) and the
// worker (consumer).
type Queue interface {
	// Enqueue publishes jobID for delivery to a worker.
	Enqueue(ctx context.Context, jobID string) error

	// Receive long-polls for up to max available messages. It may return
	// fewer than max, including zero, without error.
	Receive(ctx context.Context, max int) ([]Message, error)

	// Delete acknowledges a message, removing it from the queue so it is
	// not redelivered after the visibility timeout.
	Delete(ctx context.Context, msg Message) error
}
