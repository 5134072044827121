package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"scenecast/internal/app"
	"scenecast/internal/config"
	"scenecast/internal/files"
	"scenecast/internal/httpapi"
	"scenecast/internal/httpapi/handlers"
	"scenecast/internal/jobs"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/pkg/shutdown"
	"scenecast/internal/worker"
	"scenecast/internal/worker/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{ServiceName: "scenecast-api"}).LogFatal("invalid configuration", err)
	}

	log := app.NewLogger(cfg, "scenecast-api")
	log.Info("starting scenecast API",
		"job_store", cfg.JobStore,
		"dispatch", cfg.DispatchMode,
		"storage", cfg.StorageProvider,
	)

	ctx := context.Background()
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

	var dispatcher jobs.Dispatcher
	switch cfg.DispatchMode {
	case config.DispatchQueue:
		dispatcher = worker.NewQueueDispatcher(queue.NewRedisQueue(rt.Redis, cfg.QueueName))
		log.Info("async renders go to the queue", "queue", cfg.QueueName)
	default:
		inproc := worker.NewInProcessDispatcher(rt.Processor, cfg.MaxConcurrentRenders, log)
		dispatcher = inproc
		shutdownMgr.Register("render-drain", inproc.Wait)
	}
	tracker := jobs.NewTracker(rt.Store, dispatcher, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers: handlers.Deps{
			Renderer:  rt.Processor,
			Tracker:   tracker,
			Files:     rt.Files,
			Storage:   rt.Storage,
			Version:   rt.Driver,
			Store:     rt.Store,
			StoreName: cfg.JobStore,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Log:            log,
	})

	// Sync renders hold the connection for the whole render, so there is
	// no write timeout.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait(ctx)
}
