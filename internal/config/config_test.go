package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"YTC_BACKEND_URL", "YTC_CACHE_PATH", "YTC_POLL_INTERVAL",
		"YTC_POLL_MAX_ATTEMPTS", "YTC_VIDEO", "YTC_LOG_LEVEL", "YTC_LOG_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.BackendURL != DefaultBackendURL {
		t.Fatalf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.PollInterval != DefaultPollInterval || cfg.PollMaxAttempts != DefaultPollMaxAttempts {
		t.Fatalf("poll bounds = %v/%d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.CachePath == "" {
		t.Fatal("CachePath empty")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("YTC_BACKEND_URL", "http://tutor.lan:9000/")
	t.Setenv("YTC_CACHE_PATH", "/tmp/ytc-test.db")
	t.Setenv("YTC_POLL_INTERVAL", "500ms")
	t.Setenv("YTC_POLL_MAX_ATTEMPTS", "10")
	t.Setenv("YTC_VIDEO", "  dQw4w9WgXcQ ")
	t.Setenv("YTC_LOG_LEVEL", "DEBUG")

	cfg := Load()
	if cfg.BackendURL != "http://tutor.lan:9000" {
		t.Fatalf("BackendURL = %q, want trailing slash stripped", cfg.BackendURL)
	}
	if cfg.CachePath != "/tmp/ytc-test.db" {
		t.Fatalf("CachePath = %q", cfg.CachePath)
	}
	if cfg.PollInterval != 500*time.Millisecond || cfg.PollMaxAttempts != 10 {
		t.Fatalf("poll bounds = %v/%d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.StartupVideo != "dQw4w9WgXcQ" {
		t.Fatalf("StartupVideo = %q", cfg.StartupVideo)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("YTC_POLL_INTERVAL", "soon")
	t.Setenv("YTC_POLL_MAX_ATTEMPTS", "-3")
	t.Setenv("YTC_LOG_LEVEL", "loud")

	cfg := Load()
	if cfg.PollInterval != DefaultPollInterval || cfg.PollMaxAttempts != DefaultPollMaxAttempts {
		t.Fatalf("malformed values not ignored: %v/%d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
}
