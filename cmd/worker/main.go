package main

import (
	"context"
	"errors"
	"fmt"

	"scenecast/internal/app"
	"scenecast/internal/config"
	"scenecast/internal/files"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/pkg/shutdown"
	"scenecast/internal/worker"
	"scenecast/internal/worker/queue"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = checkWorkerConfig(cfg)
	}
	if err != nil {
		logger.New(logger.Config{ServiceName: "scenecast-worker"}).LogFatal("invalid configuration", err)
	}

	log := app.NewLogger(cfg, "scenecast-worker")
	ctx, cancel := context.WithCancel(context.Background())
	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	rt, err := app.Build(ctx, cfg, log, shutdownMgr)
	if err != nil {
		shutdownMgr.Shutdown()
		log.LogFatal("startup failed", err)
	}

	reaper, err := files.NewReaper(rt.Files, cfg.ReapSchedule, cfg.TempMaxAge, log)
	if err != nil {
		shutdownMgr.Shutdown()
		log.LogFatal("invalid REAP_SCHEDULE", err, "schedule", cfg.ReapSchedule)
	}
	reaper.Start()
	shutdownMgr.Register("reaper", reaper.Stop)

	done := make(chan struct{})
	shutdownMgr.Register("consumers", func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		defer close(done)
		err := worker.Run(ctx, worker.Deps{
			Queue:       queue.NewRedisQueue(rt.Redis, cfg.QueueName),
			Processor:   rt.Processor,
			Concurrency: cfg.WorkerConcurrency,
			Log:         log,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err.Error())
		}
	}()

	shutdownMgr.Wait(ctx)
}

// checkWorkerConfig enforces what the queue consumer needs regardless of
// DISPATCH_MODE.
func checkWorkerConfig(cfg *config.Config) error {
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required by the worker")
	}
	if cfg.JobStore == config.StoreMemory {
		return fmt.Errorf("the worker needs a shared JOB_STORE (redis or postgres)")
	}
	return nil
}
