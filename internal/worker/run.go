package worker

import (
	"context"
	"sync"
	"time"

	"scenecast/internal/pkg/logger"
	"scenecast/internal/worker/queue"
)

// DefaultPopTimeout bounds each blocking queue read so shutdown is noticed.
const DefaultPopTimeout = 30 * time.Second

// Deps wires the queue consumer.
type Deps struct {
	Queue       *queue.RedisQueue
	Processor   JobProcessor
	Concurrency int
	// PopTimeout defaults to DefaultPopTimeout. Redis rounds it to seconds.
	PopTimeout time.Duration
	Log        *logger.Logger
}

// Run starts Concurrency consumers and blocks until ctx is canceled. A job
// already popped is always processed to the end.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("worker")

	if d.PopTimeout <= 0 {
		d.PopTimeout = DefaultPopTimeout
	}
	n := d.Concurrency
	if n < 1 {
		n = 1
	}
	log.Info("worker started", "queue", d.Queue.Name(), "concurrency", n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			consume(ctx, d, &logger.Logger{Logger: log.With("consumer", id)})
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func consume(ctx context.Context, d Deps, log *logger.Logger) {
	for {
		if ctx.Err() != nil {
			log.Info("consumer stopping")
			return
		}

		env, err := d.Queue.Pop(ctx, d.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer stopping")
				return
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if env == nil || env.TaskID == "" {
			continue
		}

		jobLog := log.WithTaskID(env.TaskID)
		start := time.Now()
		jobCtx := logger.ContextWithTaskID(context.WithoutCancel(ctx), env.TaskID)
		if err := d.Processor.ProcessJob(jobCtx, env.TaskID, env.Request); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
		}
	}
}
