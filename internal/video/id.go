// Package video resolves user-supplied video references into canonical IDs.
package video

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// ExtractID accepts a watch URL, a youtu.be short link, an embed URL, or a
// bare 11-character video ID, and returns the canonical video ID.
func ExtractID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty video reference")
	}
	id, err := youtube.ExtractVideoID(raw)
	if err != nil {
		return "", fmt.Errorf("not a recognizable YouTube video %q: %w", raw, err)
	}
	return id, nil
}

// IsLocalFile reports whether raw names an existing regular file, in which
// case it should go through the upload flow instead of the embed flow.
func IsLocalFile(raw string) bool {
	info, err := os.Stat(strings.TrimSpace(raw))
	return err == nil && info.Mode().IsRegular()
}
