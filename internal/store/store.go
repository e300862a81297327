// Package store persists resume state between runs: the active session,
// formatted transcripts, chat logs, and generated quizzes, keyed by video.
// Callers treat it as best-effort cache; a failed load means starting fresh.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"yt-tutor-console/internal/session"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Open connects to the cache database at path, creating the file and its
// parent directory as needed, and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession records sess as the session to resume on next launch.
func (s *Store) SaveSession(sess *session.Session) error {
	_, err := s.db.Exec(`
		INSERT INTO active_session (slot, video_id, kind, title, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			video_id = excluded.video_id,
			kind     = excluded.kind,
			title    = excluded.title,
			saved_at = excluded.saved_at`,
		sess.VideoID, string(sess.Kind), sess.Title, nowStamp())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the saved session, or ok=false when none is recorded.
// The returned session carries no token; installing it mints a fresh one.
func (s *Store) LoadSession() (*session.Session, bool, error) {
	var videoID, kind, title string
	err := s.db.QueryRow(
		`SELECT video_id, kind, title FROM active_session WHERE slot = 1`,
	).Scan(&videoID, &kind, &title)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	return &session.Session{VideoID: videoID, Kind: session.Kind(kind), Title: title}, true, nil
}

// ClearSession forgets the resume slot.
func (s *Store) ClearSession() error {
	if _, err := s.db.Exec(`DELETE FROM active_session WHERE slot = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) SaveTranscript(videoID, body string) error {
	return s.upsert("transcripts", "body", videoID, body)
}

func (s *Store) LoadTranscript(videoID string) (string, bool, error) {
	return s.lookup("transcripts", "body", videoID)
}

// SaveChatLog stores the message log for videoID as JSON.
func (s *Store) SaveChatLog(videoID string, msgs []session.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}
	return s.upsert("chat_logs", "messages", videoID, string(data))
}

func (s *Store) LoadChatLog(videoID string) ([]session.Message, bool, error) {
	raw, ok, err := s.lookup("chat_logs", "messages", videoID)
	if err != nil || !ok {
		return nil, ok, err
	}
	var msgs []session.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, false, fmt.Errorf("decode chat log: %w", err)
	}
	return msgs, true, nil
}

// SaveQuiz stores the raw quiz payload for videoID.
func (s *Store) SaveQuiz(videoID string, payload []byte) error {
	return s.upsert("quizzes", "payload", videoID, string(payload))
}

func (s *Store) LoadQuiz(videoID string) ([]byte, bool, error) {
	raw, ok, err := s.lookup("quizzes", "payload", videoID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return []byte(raw), true, nil
}

// DropVideo removes every cached record for videoID.
func (s *Store) DropVideo(videoID string) error {
	for _, table := range []string{"transcripts", "chat_logs", "quizzes"} {
		if _, err := s.db.Exec(
			fmt.Sprintf(`DELETE FROM %s WHERE video_id = ?`, table), videoID,
		); err != nil {
			return fmt.Errorf("drop %s for %s: %w", table, videoID, err)
		}
	}
	return nil
}

func (s *Store) upsert(table, column, videoID, value string) error {
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO %[1]s (video_id, %[2]s, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			%[2]s    = excluded.%[2]s,
			saved_at = excluded.saved_at`, table, column),
		videoID, value, nowStamp())
	if err != nil {
		return fmt.Errorf("save to %s: %w", table, err)
	}
	return nil
}

func (s *Store) lookup(table, column, videoID string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM %s WHERE video_id = ?`, column, table), videoID,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load from %s: %w", table, err)
	}
	return value, true, nil
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
