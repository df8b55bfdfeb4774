package ingestworker

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rowforge/tabular-import/internal/domain"
	"github.com/rowforge/tabular-import/internal/eventbus"
	"github.com/rowforge/tabular-import/internal/pkg/logger"
	"github.com/rowforge/tabular-import/internal/queue"
	"github.com/rowforge/tabular-import/internal/rowprocessor"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/spreadsheet"
	"github.com/rowforge/tabular-import/internal/staging"
)

// Worker polls the Work Queue and drives each delivered job through the Row
// Processor. One Worker should run per process; Start launches its poll
// loop as a goroutine the way the teacher's cmd/worker/main.go launches its
// background services, and Drain blocks until the in-flight job (if any)
// finishes or the grace period elapses.
type Worker struct {
	queue     queue.Queue
	jobs      importjob.Repository
	store     staging.Store
	bus       *eventbus.Bus
	processor *rowprocessor.Processor
	chunkSize int
	batchSize int

	wg   sync.WaitGroup
	done chan struct{}
}

// New builds a Worker. batchSize caps how many queue messages are
// requested per Receive call; chunkSize is passed straight through to the
// Row Processor (spec.md §6 BATCH_SIZE).
func New(q queue.Queue, jobs importjob.Repository, store staging.Store, bus *eventbus.Bus, processor *rowprocessor.Processor, chunkSize int) *Worker {
	return &Worker{
		queue:     q,
		jobs:      jobs,
		store:     store,
		bus:       bus,
		processor: processor,
		chunkSize: chunkSize,
		batchSize: 10,
		done:      make(chan struct{}),
	}
}

// Start launches the poll loop. Call Drain (or cancel ctx) to stop it.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.poll(ctx)
}

// Drain signals the poll loop to stop accepting new messages and waits up
// to timeout for any in-flight job to finish.
func (w *Worker) Drain(timeout time.Duration) {
	close(w.done)

	waitCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		logger.Warn("worker drain timed out, exiting anyway")
	}
}

func (w *Worker) poll(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}

		msgs, err := w.queue.Receive(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue receive failed", "error", err.Error())
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range msgs {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	job, err := w.jobs.Get(ctx, msg.JobID)
	if err != nil {
		logger.Error("load job failed, dropping message", "job_id", msg.JobID, "error", err.Error())
		if delErr := w.queue.Delete(ctx, msg); delErr != nil {
			logger.Error("delete undeliverable message failed", "job_id", msg.JobID, "error", delErr.Error())
		}
		return
	}

	if job.Status.Terminal() {
		// already finished by a previous delivery of this job id
		if delErr := w.queue.Delete(ctx, msg); delErr != nil {
			logger.Error("delete message for already-terminal job failed", "job_id", msg.JobID, "error", delErr.Error())
		}
		return
	}

	ok, err := w.jobs.TransitionProcessing(ctx, job.ID)
	if err != nil {
		logger.Error("transition to processing failed", "job_id", job.ID, "error", err.Error())
		return
	}
	if !ok {
		// a concurrent delivery is already processing this job
		return
	}
	w.bus.Publish(job.ID, domain.EventStatusUpdate, domain.StatusUpdateData{JobID: job.ID, Status: domain.JobProcessing})

	mapping, err := w.jobs.Mapping(ctx, job.ID)
	if err != nil {
		if errors.Is(err, importjob.ErrMappingNotFound) {
			mapping = domain.VehiclePreset()
		} else {
			logger.Error("load mapping failed", "job_id", job.ID, "error", err.Error())
			return
		}
	}

	opener := func() (io.ReadCloser, error) { return w.store.Open(ctx, job.ID) }
	reader, err := spreadsheet.NewReader(job.Filename, opener)
	if err != nil {
		logger.Error("select reader failed", "job_id", job.ID, "error", err.Error())
		return
	}

	if err := w.processor.Process(ctx, job, mapping, reader, w.chunkSize); err != nil {
		logger.Error("process job failed", "job_id", job.ID, "error", err.Error())
	}

	if err := w.store.Delete(ctx, job.ID); err != nil {
		logger.Warn("delete staged file failed", "job_id", job.ID, "error", err.Error())
	}

	if err := w.queue.Delete(ctx, msg); err != nil {
		logger.Error("ack message failed", "job_id", job.ID, "error", err.Error())
	}
}
