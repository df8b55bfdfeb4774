package queue_test

import (
	"context"
	"testing"

	"github.com/rowforge/tabular-import/internal/queue"
)

func TestMemoryQueueEnqueueReceiveDelete(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, "job-2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msgs, err := q.Receive(ctx, 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	if more, err := q.Receive(ctx, 10); err != nil || len(more) != 0 {
		t.Fatalf("expected no further messages until requeue, got %d (err %v)", len(more), err)
	}

	for _, m := range msgs {
		if err := q.Delete(ctx, m); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
}

func TestMemoryQueueRequeueRedeliversUndeletedMessages(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()
	q.Enqueue(ctx, "job-1")

	msgs, _ := q.Receive(ctx, 10)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	// simulate a crash before Delete: the consumer never acked.
	q.Requeue()

	redelivered, err := q.Receive(ctx, 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(redelivered) != 1 || redelivered[0].JobID != "job-1" {
		t.Fatalf("expected job-1 redelivered, got %+v", redelivered)
	}
}

func TestMemoryQueueReceiveCapsAtAvailable(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()
	q.Enqueue(ctx, "job-1")

	msgs, err := q.Receive(ctx, 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message when only 1 is pending, got %d", len(msgs))
	}
}
