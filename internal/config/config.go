// Package config loads service settings from the environment, optionally
// seeded from a .env.local file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Job store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Dispatch modes for async renders.
const (
	DispatchInProcess = "inprocess"
	DispatchQueue     = "queue"
)

// Config holds every runtime setting of the API and the worker.
type Config struct {
	HTTPPort string

	LogLevel  string
	LogFormat string
	LogSource bool

	// External executables.
	RendererPath string
	FFmpegPath   string
	// RendererPreflight makes startup fail when `<renderer> --version` fails.
	RendererPreflight bool

	// Artifact directories.
	OutputDir    string
	TempDir      string
	ThumbnailDir string

	TempMaxAge    time.Duration
	ReapSchedule  string
	RenderTimeout time.Duration // 0 = no limit
	// MaxConcurrentRenders bounds in-process renders; 0 = unbounded.
	MaxConcurrentRenders int

	JobStore    string
	JobTTL      time.Duration
	RedisAddr   string
	DatabaseURL string

	DispatchMode      string
	QueueName         string
	WorkerConcurrency int

	StorageProvider    string
	StorageLocalRoot   string
	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string

	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// Load reads .env.local (current or parent directory) and then the process
// environment, and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	outputDir := getEnv("OUTPUT_DIR", "../uploads/videos")
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8000"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogSource: getEnvAsBool("LOG_SOURCE", false),

		RendererPath:      getEnv("MANIM_PATH", "manim"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		RendererPreflight: getEnvAsBool("RENDERER_PREFLIGHT", true),

		OutputDir:    outputDir,
		TempDir:      getEnv("TEMP_DIR", "../uploads/temp"),
		ThumbnailDir: getEnv("THUMBNAIL_DIR", filepath.Join(filepath.Dir(filepath.Clean(outputDir)), "thumbnails")),

		TempMaxAge:           time.Duration(getEnvAsInt("TEMP_MAX_AGE_HOURS", 24)) * time.Hour,
		ReapSchedule:         getEnv("REAP_SCHEDULE", "@every 1h"),
		RenderTimeout:        getEnvAsDuration("RENDER_TIMEOUT", 0),
		MaxConcurrentRenders: getEnvAsInt("MAX_CONCURRENT_RENDERS", 0),

		JobStore:    strings.ToLower(getEnv("JOB_STORE", StoreMemory)),
		JobTTL:      getEnvAsDuration("JOB_TTL", 0),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		DispatchMode:      strings.ToLower(getEnv("DISPATCH_MODE", DispatchInProcess)),
		QueueName:         getEnv("JOB_QUEUE_NAME", "scenecast:renders"),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),

		StorageProvider:    strings.ToLower(getEnv("STORAGE_PROVIDER", "localfs")),
		StorageLocalRoot:   getEnv("STORAGE_LOCAL_ROOT", filepath.Dir(filepath.Clean(outputDir))),
		GDriveClientID:     getEnv("GDRIVE_CLIENT_ID", ""),
		GDriveClientSecret: getEnv("GDRIVE_CLIENT_SECRET", ""),
		GDriveRefreshToken: getEnv("GDRIVE_REFRESH_TOKEN", ""),
		GDriveFolderID:     getEnv("GDRIVE_FOLDER_ID", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate rejects inconsistent combinations.
func (c *Config) Validate() error {
	if c.RendererPath == "" {
		return fmt.Errorf("MANIM_PATH must not be empty")
	}
	if c.OutputDir == "" || c.TempDir == "" {
		return fmt.Errorf("OUTPUT_DIR and TEMP_DIR must not be empty")
	}
	if c.MaxConcurrentRenders < 0 {
		return fmt.Errorf("MAX_CONCURRENT_RENDERS must be >= 0")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}

	switch c.JobStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when JOB_STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when JOB_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown JOB_STORE %q", c.JobStore)
	}

	switch c.DispatchMode {
	case DispatchInProcess:
	case DispatchQueue:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when DISPATCH_MODE=queue")
		}
		if c.JobStore == StoreMemory {
			return fmt.Errorf("DISPATCH_MODE=queue needs a shared JOB_STORE (redis or postgres)")
		}
	default:
		return fmt.Errorf("unknown DISPATCH_MODE %q", c.DispatchMode)
	}

	switch c.StorageProvider {
	case "localfs":
		if c.StorageLocalRoot == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT must not be empty")
		}
	case "gdrive":
		if c.GDriveClientID == "" || c.GDriveClientSecret == "" || c.GDriveRefreshToken == "" {
			return fmt.Errorf("GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN are required for gdrive storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.StorageProvider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

func getEnvAsInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvAsBool accepts anything strconv.ParseBool does.
func getEnvAsBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
