// Package session owns the per-video conversation: the active video
// session, its append-only message log, and the single-flight query
// protocol against the backend.
package session

// Kind says where the video lives.
type Kind string

const (
	KindEmbedded Kind = "embedded-stream"
	KindUpload   Kind = "uploaded-file"
)

// Session is the active video. Selecting a new video replaces it wholesale;
// Token changes on every replacement so late responses for a previous
// session can be recognized and dropped.
type Session struct {
	Token      string
	VideoID    string
	Kind       Kind
	Title      string
	Transcript string
}

// Sender classifies chat log entries.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Message is one chat log entry. The log is insertion-ordered and
// append-only; Timestamp is the playback position captured when the
// triggering question was submitted, nil for entries without one.
type Message struct {
	ID            int      `json:"id"`
	Sender        Sender   `json:"sender"`
	Text          string   `json:"text"`
	Timestamp     *float64 `json:"timestamp,omitempty"`
	IsError       bool     `json:"is_error,omitempty"`
	IsDownloading bool     `json:"is_downloading,omitempty"`
}
