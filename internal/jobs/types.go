// Package jobs tracks long-running server-side work (transcript formatting,
// upload processing, quiz generation) through a generic bounded polling
// protocol. One poller owns each job key; polling always terminates in a
// terminal status, never an open loop.
package jobs

import (
	"encoding/json"
	"fmt"
)

// Type names one long-running feature.
type Type string

const (
	TypeFormatting Type = "formatting"
	TypeUpload     Type = "upload"
	TypeQuiz       Type = "quiz"
)

// Key identifies one server-side job: the subject video plus the feature.
type Key struct {
	VideoID string
	Type    Type
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.VideoID, k.Type)
}

// Status is the tracked job state.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusUnknown: {
		StatusUnknown:   true,
		StatusRunning:   true,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusTimedOut:  true,
	},
	StatusRunning: {
		StatusRunning:   true,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusTimedOut:  true,
	},
	// Terminal states only move by discarding the record.
	StatusCompleted: {StatusCompleted: true},
	StatusFailed:    {StatusFailed: true},
	StatusTimedOut:  {StatusTimedOut: true},
}

// Terminal reports whether polling stops at this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

func canTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Record is the tracked state of one job. Mutated only by the poller that
// owns its key.
type Record struct {
	Key             Key
	Status          Status
	ProgressPercent int
	CurrentUnit     int
	TotalUnits      int
	Result          json.RawMessage
	ErrorMessage    string
	Attempts        int
}

// Report is one observation from a status source. Progress fields are
// advisory; their absence never blocks terminal-state detection.
type Report struct {
	Status          Status
	Known           bool // false when the response shape was unrecognized
	HasProgress     bool
	ProgressPercent int
	CurrentUnit     int
	TotalUnits      int
	Result          json.RawMessage
	ErrorMessage    string
}
