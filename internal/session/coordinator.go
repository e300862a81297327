package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/sched"
)

// scrollSettleDelay gives the view a beat to lay out a freshly appended
// message before the scroll-to-bottom hook runs.
const scrollSettleDelay = 100 * time.Millisecond

// Querier issues a video question to the backend.
type Querier interface {
	Query(ctx context.Context, req backend.QueryRequest) (backend.QueryResponse, error)
}

// Coordinator mediates between the chat surface and the backend. It keeps
// the active session and its message log, enforces one in-flight query at
// a time, stamps each question with the playback position at submit time,
// and discards responses that arrive after the session they belong to has
// been replaced.
type Coordinator struct {
	querier Querier
	clock   sched.Clock
	log     *slog.Logger

	// Now supplies the playback position stamped onto outgoing queries.
	// Nil means questions go out unstamped.
	Now func() float64

	// OnChange fires after every mutation of the session or message log.
	// OnScroll fires shortly after a response lands, once the log has had
	// time to settle. Both may be nil and are called without the lock held.
	OnChange func()
	OnScroll func()

	mu       sync.Mutex
	current  *Session
	messages []Message
	nextID   int
	inFlight bool
	imagery  bool
}

func NewCoordinator(querier Querier, clock sched.Clock, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{querier: querier, clock: clock, log: logger, nextID: 1}
}

// Replace installs sess as the active session and resets the message log.
// Any response still in flight for the previous session will be dropped
// when it lands. Passing nil ends the session without starting a new one.
func (c *Coordinator) Replace(sess *Session) {
	c.mu.Lock()
	if sess != nil && sess.Token == "" {
		sess.Token = uuid.NewString()
	}
	c.current = sess
	c.messages = nil
	c.inFlight = false
	c.mu.Unlock()
	c.notify()
}

// Restore installs a session together with a previously saved message log,
// for picking up where an earlier run left off.
func (c *Coordinator) Restore(sess *Session, msgs []Message) {
	c.mu.Lock()
	if sess != nil && sess.Token == "" {
		sess.Token = uuid.NewString()
	}
	c.current = sess
	c.messages = append([]Message(nil), msgs...)
	c.inFlight = false
	for _, m := range msgs {
		if m.ID >= c.nextID {
			c.nextID = m.ID + 1
		}
	}
	c.mu.Unlock()
	c.notify()
}

// Current returns the active session, or nil.
func (c *Coordinator) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Messages returns a copy of the message log.
func (c *Coordinator) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// InFlight reports whether a query is awaiting its response.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// SetImageQuery toggles whether submitted questions ask about the current
// frame rather than the video as a whole.
func (c *Coordinator) SetImageQuery(on bool) {
	c.mu.Lock()
	c.imagery = on
	c.mu.Unlock()
}

// AppendSystem adds a system-authored entry to the log, for surfacing
// notices and failures that did not originate from a question.
func (c *Coordinator) AppendSystem(text string, isErr bool) {
	c.mu.Lock()
	c.appendLocked(Message{Sender: SenderSystem, Text: text, IsError: isErr})
	c.mu.Unlock()
	c.notify()
}

// Submit sends text as a question about the active session. It returns
// false without side effects when the text is blank, no session is active,
// or a previous question is still in flight. On acceptance the question is
// appended to the log immediately and the answer arrives asynchronously.
func (c *Coordinator) Submit(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.current == nil || c.inFlight {
		c.mu.Unlock()
		return false
	}
	token := c.current.Token
	videoID := c.current.VideoID
	imagery := c.imagery
	c.inFlight = true

	var stamp float64
	if c.Now != nil {
		stamp = c.Now()
	}
	c.appendLocked(Message{Sender: SenderUser, Text: text, Timestamp: &stamp})
	c.mu.Unlock()
	c.notify()

	go c.perform(token, backend.QueryRequest{
		VideoID:      videoID,
		Query:        text,
		Timestamp:    stamp,
		IsImageQuery: imagery,
	})
	return true
}

func (c *Coordinator) perform(token string, req backend.QueryRequest) {
	resp, err := c.querier.Query(context.Background(), req)

	c.mu.Lock()
	if c.current == nil || c.current.Token != token {
		// The session changed while the request was out. The response
		// belongs to a log that no longer exists.
		c.mu.Unlock()
		c.log.Debug("discarding stale query response", "video_id", req.VideoID)
		return
	}
	c.inFlight = false
	if err != nil {
		c.log.Warn("query failed", "video_id", req.VideoID, "err", err)
		c.appendLocked(Message{Sender: SenderSystem, Text: backend.UserMessage(err), IsError: true})
	} else {
		// The answer carries the same playback position the question was
		// stamped with, so both sides of the exchange anchor to one moment.
		ts := req.Timestamp
		c.appendLocked(Message{
			Sender:        SenderAssistant,
			Text:          resp.Response,
			Timestamp:     &ts,
			IsDownloading: resp.IsDownloading,
		})
	}
	c.mu.Unlock()
	c.notify()

	if c.OnScroll != nil {
		c.clock.After(scrollSettleDelay, c.OnScroll)
	}
}

// appendLocked assigns the next monotonic ID and appends. Caller holds mu.
func (c *Coordinator) appendLocked(m Message) {
	m.ID = c.nextID
	c.nextID++
	c.messages = append(c.messages, m)
}

func (c *Coordinator) notify() {
	if c.OnChange != nil {
		c.OnChange()
	}
}
