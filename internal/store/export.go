package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"yt-tutor-console/internal/session"
)

// writeBytesAtomic writes data to path via a temp file and rename, so a
// crash mid-write never leaves a truncated export behind.
func writeBytesAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".ytc-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

// ExportTranscript writes a cached transcript to path as plain text.
func ExportTranscript(path, body string) error {
	return writeBytesAtomic(path, []byte(body))
}

// ExportChatLog writes a message log to path as indented JSON.
func ExportChatLog(path string, msgs []session.Message) error {
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chat log for %s: %w", path, err)
	}
	data = append(data, '\n')
	return writeBytesAtomic(path, data)
}
