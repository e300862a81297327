package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"yt-tutor-console/internal/config"
	"yt-tutor-console/internal/store"
	"yt-tutor-console/internal/tui"
)

func runTUI(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	videoFlag := fs.String("video", "", "video URL, ID, or file path to open at startup")
	backendFlag := fs.String("backend", "", "backend base URL (overrides YTC_BACKEND_URL)")
	cacheFlag := fs.String("cache", "", "cache database path (overrides YTC_CACHE_PATH)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("run requires an interactive terminal (TTY)")
	}

	cfg := config.Load()
	if v := strings.TrimSpace(*videoFlag); v != "" {
		cfg.StartupVideo = v
	}
	if v := strings.TrimSpace(*backendFlag); v != "" {
		cfg.BackendURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(*cacheFlag); v != "" {
		cfg.CachePath = v
	}

	logger := newLogger(cfg)

	st, err := store.Open(cfg.CachePath)
	if err != nil {
		// The cache is a convenience; run without it rather than refusing.
		logger.Warn("cache unavailable, running without persistence", "err", err)
		st = nil
	}

	return tui.NewApp(cfg, logger, st).Run()
}

// newLogger builds the slog logger. Output goes to the configured file;
// with no file it is discarded so log lines never tear the TUI.
func newLogger(cfg config.Config) *slog.Logger {
	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot open log file %s: %v\n", cfg.LogFile, err)
		} else {
			w = f
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
