// Package worker hands accepted render jobs to whatever runs them: a
// goroutine in the API process or a queue drained by cmd/worker.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"scenecast/internal/jobs"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/worker/queue"
)

// JobProcessor runs a job to its terminal state.
type JobProcessor interface {
	ProcessJob(ctx context.Context, taskID string, req jobs.Request) error
}

// InProcessDispatcher renders each job in its own goroutine. The goroutine
// outlives the submitting request.
type InProcessDispatcher struct {
	proc JobProcessor
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
	log  *logger.Logger
}

// NewInProcessDispatcher bounds concurrent renders to maxConcurrent; zero
// or less means unbounded.
func NewInProcessDispatcher(proc JobProcessor, maxConcurrent int, log *logger.Logger) *InProcessDispatcher {
	d := &InProcessDispatcher{proc: proc, log: log.WithComponent("dispatcher")}
	if maxConcurrent > 0 {
		d.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return d
}

// Dispatch returns immediately. Extra jobs wait for a slot inside their
// goroutine, never in the caller.
func (d *InProcessDispatcher) Dispatch(ctx context.Context, taskID string, req jobs.Request) error {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.sem != nil {
			if err := d.sem.Acquire(ctx, 1); err != nil {
				d.log.Error("could not acquire render slot", "task_id", taskID, "error", err.Error())
				return
			}
			defer d.sem.Release(1)
		}
		// ProcessJob records failures on the job itself.
		_ = d.proc.ProcessJob(ctx, taskID, req)
	}()
	return nil
}

// Wait blocks until all dispatched jobs finish or ctx is done.
func (d *InProcessDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDispatcher enqueues jobs for cmd/worker.
type QueueDispatcher struct {
	q *queue.RedisQueue
}

func NewQueueDispatcher(q *queue.RedisQueue) *QueueDispatcher {
	return &QueueDispatcher{q: q}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, taskID string, req jobs.Request) error {
	return d.q.Push(ctx, queue.Envelope{TaskID: taskID, Request: req})
}
