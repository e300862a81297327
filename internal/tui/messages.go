package tui

import (
	"time"

	"yt-tutor-console/internal/jobs"
	"yt-tutor-console/internal/session"
	"yt-tutor-console/internal/widget"
)

// Messages delivered to the tea program. Engine callbacks translate into
// these via program.Send; commands return them directly.

// tickMsg refreshes the playback snapshot once a second.
type tickMsg struct {
	At time.Time
}

type widgetLiveMsg struct {
	Duration float64
}

type widgetStateMsg struct {
	State widget.PlayerState
}

type widgetFailedMsg struct {
	Msg string
}

// chatChangedMsg fires after any mutation of the chat log.
type chatChangedMsg struct{}

// chatScrollMsg fires once a fresh response has settled into the log.
type chatScrollMsg struct{}

type jobUpdateMsg struct {
	Record jobs.Record
}

// videoOpenedMsg carries the outcome of resolving a URL, ID, or local file
// into a ready-to-attach session.
type videoOpenedMsg struct {
	Sess       *session.Session
	Transcript string
	Err        error
}

// restoredMsg carries state recovered from the cache at startup. A nil
// Sess means nothing was saved and the startup hint (if any) applies.
type restoredMsg struct {
	Sess       *session.Session
	Transcript string
	Messages   []session.Message
	Hint       string
}

// chatSavedMsg acknowledges a background chat-log write. Err is logged only.
type chatSavedMsg struct {
	Err error
}
