package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process fake implementing Queue, used by tests in
// place of SQS (no Work Queue third-party dependency sits on the critical
// path for unit tests; this mirrors go-sqlmock's role for the Job Store).
type MemoryQueue struct {
	mu      sync.Mutex
	pending []Message
	leased  map[string]Message // receipt handle -> message, awaiting Delete
}

// NewMemoryQueue creates an empty in-memory Queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{leased: make(map[string]Message)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Message{JobID: jobID, ReceiptHandle: uuid.New().String()})
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max > len(q.pending) {
		max = len(q.pending)
	}
	out := make([]Message, max)
	copy(out, q.pending[:max])
	q.pending = q.pending[max:]

	for _, m := range out {
		q.leased[m.ReceiptHandle] = m
	}
	return out, nil
}

func (q *MemoryQueue) Delete(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.leased, msg.ReceiptHandle)
	return nil
}

// Requeue puts every leased-but-undeleted message back on the pending
// queue. Tests use this to exercise redelivery/idempotency.
func (q *MemoryQueue) Requeue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range q.leased {
		q.pending = append(q.pending, m)
	}
	q.leased = make(map[string]Message)
}
