// Package config loads the small, flat environment-variable configuration
// named in spec.md §6. Grounded on the teacher's internal/config/config.go
// LoadFromEnv: godotenv.Load() first (so a .env file works locally and real
// env vars take over in deployment), then os.Getenv for every field -
// trimmed down from the teacher's large nested YAML Config since this
// service has no multi-tenant ESP/CRM surface to configure.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the submitter, worker, and transport layer need.
type Config struct {
	DatabaseURL string

	QueueURL               string
	QueueEndpointOverride  string
	QueueLongPollSeconds   int
	QueueVisibilitySeconds int

	UploadDir      string
	MaxUploadBytes int64

	BatchSize        int
	ProgressThrottle time.Duration
	SSEHeartbeat     time.Duration

	ListenAddr string
}

// Load reads the process environment (after loading a .env file if one is
// present) and applies the defaults spec.md §6 specifies for every field.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", "postgres://localhost:5432/tabular_import?sslmode=disable"),
		QueueURL:              getEnv("QUEUE_URL", ""),
		QueueEndpointOverride: getEnv("QUEUE_ENDPOINT_OVERRIDE", ""),
		UploadDir:             getEnv("UPLOAD_DIR", "./uploads"),
		ListenAddr:            getEnv("LISTEN_ADDR", ":8080"),
	}

	var err error
	if cfg.QueueLongPollSeconds, err = getEnvInt("QUEUE_LONG_POLL_SEC", 20); err != nil {
		return nil, err
	}
	if cfg.QueueVisibilitySeconds, err = getEnvInt("QUEUE_VISIBILITY_SEC", 300); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getEnvInt("BATCH_SIZE", 1000); err != nil {
		return nil, err
	}

	maxUploadBytes, err := getEnvInt64("MAX_UPLOAD_BYTES", 20*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = maxUploadBytes

	throttleMS, err := getEnvInt("PROGRESS_THROTTLE_MS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.ProgressThrottle = time.Duration(throttleMS) * time.Millisecond

	heartbeatSec, err := getEnvInt("SSE_HEARTBEAT_SEC", 30)
	if err != nil {
		return nil, err
	}
	cfg.SSEHeartbeat = time.Duration(heartbeatSec) * time.Second

	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("config: QUEUE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}
