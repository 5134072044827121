// Package app wires the backing services shared by cmd/api and cmd/worker.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"scenecast/internal/config"
	"scenecast/internal/files"
	"scenecast/internal/jobs"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/pkg/shutdown"
	"scenecast/internal/ports"
	"scenecast/internal/repositories"
	"scenecast/internal/storage"
	"scenecast/internal/worker/processor"
	"scenecast/internal/worker/renderer"
	"scenecast/internal/worker/thumbnail"
)

// Runtime is everything a binary needs to process renders.
type Runtime struct {
	Redis     *redis.Client // nil unless REDIS_ADDR is set
	Pool      *pgxpool.Pool // nil unless JOB_STORE=postgres
	Store     jobs.Store
	Storage   ports.StorageProvider
	Files     *files.Manager
	Driver    *renderer.Driver
	Processor *processor.Processor
}

// NewLogger builds the service logger from cfg.
func NewLogger(cfg *config.Config, service string) *logger.Logger {
	return logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		AddSource:   cfg.LogSource,
		ServiceName: service,
	})
}

// Build connects the configured backends and registers their close steps
// with sd. Steps registered here run last on shutdown.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, sd *shutdown.Manager) (*Runtime, error) {
	rt := &Runtime{}

	rt.Files = files.NewManager(files.Dirs{
		Output:    cfg.OutputDir,
		Scratch:   cfg.TempDir,
		Thumbnail: cfg.ThumbnailDir,
	}, log)
	if err := rt.Files.Bootstrap(); err != nil {
		return nil, fmt.Errorf("create artifact directories: %w", err)
	}

	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis", "addr", cfg.RedisAddr)
		rt.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sd.Register("redis", func(context.Context) error { return rt.Redis.Close() })
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("Redis connected")
	}

	switch cfg.JobStore {
	case config.StoreRedis:
		rt.Store = jobs.NewRedisStore(rt.Redis, cfg.JobTTL)
	case config.StorePostgres:
		log.Info("connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.Pool = pool
		sd.RegisterSimple("postgres", pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo := repositories.NewJobRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		rt.Store = repo
		log.Info("PostgreSQL connected")
	default:
		rt.Store = jobs.NewMemoryStore()
	}

	sp, err := storage.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage provider: %w", err)
	}
	rt.Storage = sp
	log.Info("storage provider initialized", "provider", sp.Provider())

	rt.Driver = renderer.New(renderer.Config{
		Executable: cfg.RendererPath,
		OutputDir:  cfg.OutputDir,
		ScratchDir: cfg.TempDir,
		Timeout:    cfg.RenderTimeout,
	}, log)

	version, err := rt.Driver.Version(ctx)
	switch {
	case err == nil:
		log.Info("renderer available", "version", version)
	case cfg.RendererPreflight:
		return nil, fmt.Errorf("renderer preflight (%s --version): %w", cfg.RendererPath, err)
	default:
		log.Warn("renderer not available, renders will fail", "path", cfg.RendererPath, "error", err.Error())
	}

	rt.Processor = processor.New(processor.Deps{
		Store:       rt.Store,
		Renderer:    rt.Driver,
		Thumbnailer: thumbnail.New(cfg.FFmpegPath, cfg.ThumbnailDir, log),
		Storage:     sp,
		Log:         log,
	})
	return rt, nil
}
