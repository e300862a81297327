package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"yt-tutor-console/internal/sched"
)

type scriptedSource struct {
	mu       sync.Mutex
	reports  []Report
	errAt    map[int]error // 1-based check index -> error
	checks   int
	fetched  int
	fetch    Report
	fetchErr error
}

func (s *scriptedSource) Check(ctx context.Context, key Key) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if err, ok := s.errAt[s.checks]; ok {
		return Report{}, err
	}
	idx := s.checks - 1
	if idx >= len(s.reports) {
		idx = len(s.reports) - 1
	}
	return s.reports[idx], nil
}

func (s *scriptedSource) FetchResult(ctx context.Context, key Key) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched++
	return s.fetch, s.fetchErr
}

func (s *scriptedSource) checkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

func running(pct, current, total int) Report {
	return Report{
		Status: StatusRunning, Known: true,
		HasProgress: true, ProgressPercent: pct, CurrentUnit: current, TotalUnits: total,
	}
}

func completed(result string) Report {
	return Report{Status: StatusCompleted, Known: true, Result: json.RawMessage(result)}
}

func newTestTracker() (*Tracker, *sched.Manual) {
	clock := sched.NewManual(time.Unix(0, 0))
	return NewTracker(clock, nil), clock
}

func TestResumeCompletesWithinScriptedSequence(t *testing.T) {
	src := &scriptedSource{reports: []Report{
		running(10, 1, 10),
		running(55, 5, 10),
		completed(`{"formatted_transcript":"R"}`),
	}}
	tracker, clock := newTestTracker()

	var progress []int
	tracker.OnUpdate = func(rec Record) { progress = append(progress, rec.ProgressPercent) }

	key := Key{VideoID: "vid-1", Type: TypeFormatting}
	tracker.Resume(context.Background(), key, src)

	clock.Advance(3 * DefaultInterval)

	rec, ok := tracker.Get(key)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", rec.Status, rec.ErrorMessage)
	}
	if string(rec.Result) != `{"formatted_transcript":"R"}` {
		t.Fatalf("unexpected result payload: %s", rec.Result)
	}

	saw10, saw55 := false, false
	for _, p := range progress {
		if p == 10 {
			saw10 = true
		}
		if p == 55 && saw10 {
			saw55 = true
		}
	}
	if !saw10 || !saw55 {
		t.Fatalf("progress did not pass through 10 then 55: %v", progress)
	}
	if tracker.Polling(key) {
		t.Fatal("poller still live after completion")
	}
}

func TestPollingTimesOutAtAttemptCeiling(t *testing.T) {
	src := &scriptedSource{reports: []Report{running(40, 2, 5)}}
	tracker, clock := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeQuiz}
	tracker.Resume(context.Background(), key, src)

	clock.Advance(time.Duration(DefaultMaxAttempts) * DefaultInterval)

	rec, _ := tracker.Get(key)
	if rec.Status != StatusTimedOut {
		t.Fatalf("expected timed_out, got %s", rec.Status)
	}
	if rec.ErrorMessage == "" {
		t.Fatal("timeout must carry a message")
	}

	// The timer must be stopped: no further checks after the ceiling.
	before := src.checkCount()
	clock.Advance(20 * DefaultInterval)
	if src.checkCount() != before {
		t.Fatalf("poller kept checking after timeout: %d -> %d", before, src.checkCount())
	}
	if before != 1+DefaultMaxAttempts {
		t.Fatalf("unexpected total checks: %d", before)
	}
}

func TestResumeIsIdempotentWhilePolling(t *testing.T) {
	src := &scriptedSource{reports: []Report{running(0, 0, 0)}}
	tracker, clock := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeUpload}
	tracker.Resume(context.Background(), key, src)
	checksAfterFirst := src.checkCount()

	tracker.Resume(context.Background(), key, src)
	tracker.Resume(context.Background(), key, src)
	if src.checkCount() != checksAfterFirst {
		t.Fatalf("re-resume triggered extra checks: %d", src.checkCount())
	}

	clock.Advance(DefaultInterval)
	if src.checkCount() != checksAfterFirst+1 {
		t.Fatalf("expected exactly one poller ticking, got %d checks", src.checkCount())
	}
}

func TestImmediateCompletionSkipsPolling(t *testing.T) {
	src := &scriptedSource{reports: []Report{completed(`{"quiz":[]}`)}}
	tracker, clock := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeQuiz}
	tracker.Resume(context.Background(), key, src)

	rec, _ := tracker.Get(key)
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}

	clock.Advance(10 * DefaultInterval)
	if src.checkCount() != 1 {
		t.Fatalf("terminal record still polled: %d checks", src.checkCount())
	}
}

func TestServerFailureStopsWithServerMessage(t *testing.T) {
	src := &scriptedSource{reports: []Report{
		running(10, 1, 4),
		{Status: StatusFailed, Known: true, ErrorMessage: "transcript unavailable"},
	}}
	tracker, clock := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeFormatting}
	tracker.Resume(context.Background(), key, src)
	clock.Advance(DefaultInterval)

	rec, _ := tracker.Get(key)
	if rec.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if rec.ErrorMessage != "transcript unavailable" {
		t.Fatalf("server message not surfaced verbatim: %q", rec.ErrorMessage)
	}
}

func TestTransientPollFailureBreaksEarly(t *testing.T) {
	src := &scriptedSource{
		reports: []Report{running(10, 1, 4)},
		errAt:   map[int]error{3: errors.New("connection reset")},
	}
	tracker, clock := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeFormatting}
	tracker.Resume(context.Background(), key, src)
	clock.Advance(5 * DefaultInterval)

	rec, _ := tracker.Get(key)
	if rec.Status != StatusFailed {
		t.Fatalf("expected fail-fast on transient error, got %s", rec.Status)
	}
	if src.checkCount() != 3 {
		t.Fatalf("poller retried past the broken connection: %d checks", src.checkCount())
	}
}

func TestUnknownShapeFallsBackToDirectFetch(t *testing.T) {
	src := &scriptedSource{
		reports: []Report{{Known: false}},
		fetch:   completed(`{"formatted_transcript":"direct"}`),
	}
	tracker, _ := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeFormatting}
	tracker.Resume(context.Background(), key, src)

	rec, _ := tracker.Get(key)
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed via direct fetch, got %s", rec.Status)
	}
	if src.fetched != 1 {
		t.Fatalf("direct fetch not used: %d", src.fetched)
	}
}

func TestUnknownShapeWithoutPayloadFailsDescriptively(t *testing.T) {
	src := &scriptedSource{
		reports: []Report{{Known: false}},
		fetch:   Report{Status: StatusRunning},
	}
	tracker, _ := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeFormatting}
	tracker.Resume(context.Background(), key, src)

	rec, _ := tracker.Get(key)
	if rec.Status != StatusFailed {
		t.Fatalf("expected descriptive failure, got %s", rec.Status)
	}
	if rec.ErrorMessage == "" {
		t.Fatal("fallback failure must not be silent")
	}
}

func TestCancelDiscardsRecordAndStopsTimer(t *testing.T) {
	src := &scriptedSource{reports: []Report{running(10, 1, 4)}}
	tracker, clock := newTestTracker()

	key := Key{VideoID: "vid-1", Type: TypeUpload}
	tracker.Resume(context.Background(), key, src)
	tracker.Cancel(key)

	if _, ok := tracker.Get(key); ok {
		t.Fatal("record survived cancel")
	}

	before := src.checkCount()
	clock.Advance(10 * DefaultInterval)
	if src.checkCount() != before {
		t.Fatal("poller ticked after cancel")
	}
}

func TestCancelAllOnSessionReplacement(t *testing.T) {
	src := &scriptedSource{reports: []Report{running(10, 1, 4)}}
	tracker, clock := newTestTracker()

	keys := []Key{
		{VideoID: "vid-1", Type: TypeFormatting},
		{VideoID: "vid-1", Type: TypeQuiz},
	}
	for _, k := range keys {
		tracker.Resume(context.Background(), k, src)
	}
	tracker.CancelAll()

	before := src.checkCount()
	clock.Advance(10 * DefaultInterval)
	if src.checkCount() != before {
		t.Fatal("pollers survived session replacement")
	}
	for _, k := range keys {
		if _, ok := tracker.Get(k); ok {
			t.Fatalf("record %s survived session replacement", k)
		}
	}
}
