// Package config resolves runtime settings from a .env file and the
// process environment, with sane defaults for everything.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBackendURL      = "http://localhost:8000"
	DefaultPollInterval    = 2 * time.Second
	DefaultPollMaxAttempts = 120
)

type Config struct {
	// BackendURL is the base URL of the tutoring backend.
	BackendURL string
	// CachePath is the sqlite cache file for resume state.
	CachePath string
	// PollInterval and PollMaxAttempts bound the job status poll loops.
	PollInterval    time.Duration
	PollMaxAttempts int
	// StartupVideo is a video URL or ID to open when no previous session
	// is restored. It never overrides restored state.
	StartupVideo string
	// LogLevel and LogFile control the slog handler. An empty LogFile
	// discards logs, keeping the TUI free of interleaved output.
	LogLevel slog.Level
	LogFile  string
}

// Load reads .env from the working directory if present, then the process
// environment. Unset or malformed values fall back to defaults; Load never
// fails.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		BackendURL:      DefaultBackendURL,
		CachePath:       defaultCachePath(),
		PollInterval:    DefaultPollInterval,
		PollMaxAttempts: DefaultPollMaxAttempts,
		LogLevel:        slog.LevelInfo,
	}

	if v := strings.TrimSpace(os.Getenv("YTC_BACKEND_URL")); v != "" {
		cfg.BackendURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("YTC_CACHE_PATH")); v != "" {
		cfg.CachePath = v
	}
	if v := strings.TrimSpace(os.Getenv("YTC_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("YTC_POLL_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollMaxAttempts = n
		}
	}
	cfg.StartupVideo = strings.TrimSpace(os.Getenv("YTC_VIDEO"))
	cfg.LogLevel = parseLevel(os.Getenv("YTC_LOG_LEVEL"))
	cfg.LogFile = strings.TrimSpace(os.Getenv("YTC_LOG_FILE"))

	return cfg
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "yt-tutor-console", "ytc.db")
}
