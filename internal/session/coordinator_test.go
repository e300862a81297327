package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/sched"
)

// fakeQuerier records requests and serves a canned response. When gate is
// non-nil the response is held back until the gate channel is closed.
type fakeQuerier struct {
	mu    sync.Mutex
	calls []backend.QueryRequest
	resp  backend.QueryResponse
	err   error
	gate  chan struct{}
}

func (f *fakeQuerier) Query(_ context.Context, req backend.QueryRequest) (backend.QueryResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeQuerier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeQuerier) lastCall() backend.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestCoordinator(q Querier) *Coordinator {
	return NewCoordinator(q, sched.NewManual(time.Unix(0, 0)), nil)
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitRejectsBlankAndSessionless(t *testing.T) {
	q := &fakeQuerier{}
	c := newTestCoordinator(q)

	if c.Submit("   ") {
		t.Fatal("blank text accepted")
	}
	if c.Submit("what is a monad") {
		t.Fatal("submit accepted with no active session")
	}
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})
	if c.Submit("") {
		t.Fatal("empty text accepted")
	}
	if q.callCount() != 0 {
		t.Fatalf("querier called %d times, want 0", q.callCount())
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	q := &fakeQuerier{gate: gate, resp: backend.QueryResponse{Response: "sure"}}
	c := newTestCoordinator(q)
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})

	if !c.Submit("first") {
		t.Fatal("first submit rejected")
	}
	waitUntil(t, "request to go out", func() bool { return q.callCount() == 1 })
	if c.Submit("second") {
		t.Fatal("second submit accepted while first still in flight")
	}
	close(gate)

	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 2 })
	if got := q.callCount(); got != 1 {
		t.Fatalf("querier called %d times, want exactly 1", got)
	}
	msgs := c.Messages()
	if msgs[0].Sender != SenderUser || msgs[0].Text != "first" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Sender != SenderAssistant || msgs[1].Text != "sure" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
	if !c.Submit("third") {
		t.Fatal("submit rejected after previous flight completed")
	}
}

func TestSubmitStampsPlaybackPosition(t *testing.T) {
	q := &fakeQuerier{resp: backend.QueryResponse{Response: "at 42.5s the speaker defines it"}}
	c := newTestCoordinator(q)
	c.Now = func() float64 { return 42.5 }
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})

	c.Submit("what was that")
	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 2 })

	if got := q.lastCall().Timestamp; got != 42.5 {
		t.Fatalf("request timestamp = %v, want 42.5", got)
	}
	msgs := c.Messages()
	if msgs[0].Timestamp == nil || *msgs[0].Timestamp != 42.5 {
		t.Fatalf("user message timestamp = %v, want 42.5", msgs[0].Timestamp)
	}
	if msgs[1].Timestamp == nil || *msgs[1].Timestamp != 42.5 {
		t.Fatalf("assistant message timestamp = %v, want the captured 42.5", msgs[1].Timestamp)
	}
}

func TestAnswerKeepsSubmitTimeStamp(t *testing.T) {
	now := 10.0
	q := &fakeQuerier{gate: make(chan struct{}), resp: backend.QueryResponse{Response: "later"}}
	c := newTestCoordinator(q)
	c.Now = func() float64 { return now }
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})

	c.Submit("what just happened")
	waitUntil(t, "request to go out", func() bool { return q.callCount() == 1 })

	// Playback moves on while the answer is pending; the stamp must not.
	now = 95.0
	close(q.gate)
	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 2 })

	msgs := c.Messages()
	if msgs[1].Timestamp == nil || *msgs[1].Timestamp != 10.0 {
		t.Fatalf("assistant message timestamp = %v, want submit-time 10.0", msgs[1].Timestamp)
	}
}

func TestImageQueryFlagTravels(t *testing.T) {
	q := &fakeQuerier{resp: backend.QueryResponse{Response: "a whiteboard"}}
	c := newTestCoordinator(q)
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})
	c.SetImageQuery(true)

	c.Submit("what is on screen")
	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 2 })
	if !q.lastCall().IsImageQuery {
		t.Fatal("is_image_query not set on request")
	}
}

func TestQueryFailureAppendsErrorAndClearsGuard(t *testing.T) {
	q := &fakeQuerier{err: &backend.ServerError{StatusCode: 422, Detail: "transcript not ready"}}
	c := newTestCoordinator(q)
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})

	c.Submit("too soon")
	waitUntil(t, "error to land", func() bool { return len(c.Messages()) == 2 })

	msgs := c.Messages()
	if msgs[1].Sender != SenderSystem || !msgs[1].IsError {
		t.Fatalf("failure message not system/error: %+v", msgs[1])
	}
	if msgs[1].Text != "transcript not ready" {
		t.Fatalf("failure text = %q, want server detail verbatim", msgs[1].Text)
	}
	if c.InFlight() {
		t.Fatal("in-flight guard still set after failure")
	}
	if !c.Submit("retry") {
		t.Fatal("submit rejected after failed flight")
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	q := &fakeQuerier{gate: gate, resp: backend.QueryResponse{Response: "answer for A"}}
	c := newTestCoordinator(q)
	c.Replace(&Session{VideoID: "aaaaaaaaaaa", Kind: KindEmbedded})

	c.Submit("question for A")
	waitUntil(t, "request to go out", func() bool { return q.callCount() == 1 })

	c.Replace(&Session{VideoID: "bbbbbbbbbbb", Kind: KindEmbedded})
	close(gate)

	// Give the stale response every chance to land, then check it did not.
	time.Sleep(50 * time.Millisecond)
	if msgs := c.Messages(); len(msgs) != 0 {
		t.Fatalf("stale response leaked into new session's log: %+v", msgs)
	}
	if c.InFlight() {
		t.Fatal("new session inherited in-flight guard")
	}
	if !c.Submit("question for B") {
		t.Fatal("new session cannot submit")
	}
}

func TestReplaceResetsLogAndRotatesToken(t *testing.T) {
	q := &fakeQuerier{resp: backend.QueryResponse{Response: "ok"}}
	c := newTestCoordinator(q)

	c.Replace(&Session{VideoID: "aaaaaaaaaaa", Kind: KindEmbedded})
	first := c.Current().Token
	c.Submit("hello")
	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 2 })

	c.Replace(&Session{VideoID: "bbbbbbbbbbb", Kind: KindUpload})
	if len(c.Messages()) != 0 {
		t.Fatal("replace did not clear message log")
	}
	if c.Current().Token == first || c.Current().Token == "" {
		t.Fatalf("token not rotated: %q", c.Current().Token)
	}
}

func TestRestoreContinuesMessageIDs(t *testing.T) {
	q := &fakeQuerier{resp: backend.QueryResponse{Response: "again"}}
	c := newTestCoordinator(q)

	saved := []Message{
		{ID: 1, Sender: SenderUser, Text: "earlier"},
		{ID: 2, Sender: SenderAssistant, Text: "before"},
	}
	c.Restore(&Session{VideoID: "abc12345678", Kind: KindEmbedded}, saved)

	c.Submit("and now")
	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 4 })
	msgs := c.Messages()
	if msgs[2].ID != 3 || msgs[3].ID != 4 {
		t.Fatalf("restored log broke ID sequence: %d, %d", msgs[2].ID, msgs[3].ID)
	}
}

func TestScrollHookFiresAfterSettle(t *testing.T) {
	clock := sched.NewManual(time.Unix(0, 0))
	q := &fakeQuerier{resp: backend.QueryResponse{Response: "done"}}
	c := NewCoordinator(q, clock, nil)
	var scrolled atomic.Bool
	c.OnScroll = func() { scrolled.Store(true) }
	c.Replace(&Session{VideoID: "abc12345678", Kind: KindEmbedded})

	c.Submit("scroll me")
	waitUntil(t, "answer to land", func() bool { return len(c.Messages()) == 2 })
	waitUntil(t, "scroll hook", func() bool {
		clock.Advance(scrollSettleDelay)
		return scrolled.Load()
	})
}
