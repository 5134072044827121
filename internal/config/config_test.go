package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE", "MANIM_PATH", "FFMPEG_PATH",
		"RENDERER_PREFLIGHT", "OUTPUT_DIR", "TEMP_DIR", "THUMBNAIL_DIR", "TEMP_MAX_AGE_HOURS",
		"REAP_SCHEDULE", "RENDER_TIMEOUT", "MAX_CONCURRENT_RENDERS", "JOB_STORE", "JOB_TTL",
		"REDIS_ADDR", "DATABASE_URL", "DISPATCH_MODE", "JOB_QUEUE_NAME", "WORKER_CONCURRENCY",
		"STORAGE_PROVIDER", "STORAGE_LOCAL_ROOT", "GDRIVE_CLIENT_ID", "GDRIVE_CLIENT_SECRET",
		"GDRIVE_REFRESH_TOKEN", "GDRIVE_FOLDER_ID", "CORS_ALLOWED_ORIGINS", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
	// Keep .env.local lookups away from the repository.
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8000" || cfg.RendererPath != "manim" || cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("unexpected basics: %+v", cfg)
	}
	if cfg.ThumbnailDir != filepath.Join("..", "uploads", "thumbnails") {
		t.Errorf("expected thumbnails next to videos, got %s", cfg.ThumbnailDir)
	}
	if cfg.StorageLocalRoot != filepath.Join("..", "uploads") {
		t.Errorf("unexpected storage root %s", cfg.StorageLocalRoot)
	}
	if cfg.TempMaxAge != 24*time.Hour || cfg.RenderTimeout != 0 || cfg.MaxConcurrentRenders != 0 {
		t.Errorf("unexpected limits: %+v", cfg)
	}
	if cfg.JobStore != StoreMemory || cfg.DispatchMode != DispatchInProcess {
		t.Errorf("unexpected modes: %s %s", cfg.JobStore, cfg.DispatchMode)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.RendererPreflight {
		t.Error("preflight should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTPUT_DIR", "/srv/media/videos")
	t.Setenv("RENDER_TIMEOUT", "90")
	t.Setenv("JOB_TTL", "2h")
	t.Setenv("JOB_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DISPATCH_MODE", "queue")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("RENDERER_PREFLIGHT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ThumbnailDir != "/srv/media/thumbnails" {
		t.Errorf("unexpected thumbnail dir %s", cfg.ThumbnailDir)
	}
	if cfg.RenderTimeout != 90*time.Second || cfg.JobTTL != 2*time.Hour {
		t.Errorf("unexpected durations %v %v", cfg.RenderTimeout, cfg.JobTTL)
	}
	if cfg.JobStore != StoreRedis || cfg.DispatchMode != DispatchQueue {
		t.Errorf("unexpected modes %s %s", cfg.JobStore, cfg.DispatchMode)
	}
	if strings.Join(cfg.CORSAllowedOrigins, "|") != "https://a.example|https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RendererPreflight {
		t.Error("preflight should be disabled")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(".env.local", []byte("MANIM_PATH=/opt/manim/bin/manim\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, even blank.
	os.Unsetenv("MANIM_PATH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RendererPath != "/opt/manim/bin/manim" {
		t.Errorf("expected value from .env.local, got %s", cfg.RendererPath)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			RendererPath: "manim", OutputDir: "o", TempDir: "t", WorkerConcurrency: 1,
			JobStore: StoreMemory, DispatchMode: DispatchInProcess,
			StorageProvider: "localfs", StorageLocalRoot: "r",
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"valid", func(*Config) {}, ""},
		{"redis store needs addr", func(c *Config) { c.JobStore = StoreRedis }, "REDIS_ADDR"},
		{"postgres store needs url", func(c *Config) { c.JobStore = StorePostgres }, "DATABASE_URL"},
		{"queue needs shared store", func(c *Config) { c.DispatchMode = DispatchQueue; c.RedisAddr = "x" }, "shared JOB_STORE"},
		{"unknown store", func(c *Config) { c.JobStore = "etcd" }, "unknown JOB_STORE"},
		{"gdrive needs creds", func(c *Config) { c.StorageProvider = "gdrive" }, "GDRIVE_CLIENT_ID"},
		{"negative concurrency", func(c *Config) { c.MaxConcurrentRenders = -1 }, "MAX_CONCURRENT_RENDERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error containing %q, got %v", tt.errSub, err)
			}
		})
	}
}
