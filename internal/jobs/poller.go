package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"yt-tutor-console/internal/sched"
)

const (
	// DefaultInterval spaces poll attempts.
	DefaultInterval = 2 * time.Second
	// DefaultMaxAttempts bounds the wait to a hard wall-clock ceiling
	// (120 × 2 s = 4 minutes).
	DefaultMaxAttempts = 120
)

// ErrTimedOut marks records that exhausted the attempt ceiling.
var ErrTimedOut = errors.New("job polling timed out")

// Source answers status questions for one job type.
type Source interface {
	// Check reads the job's current status.
	Check(ctx context.Context, key Key) (Report, error)
	// FetchResult is the secondary one-shot path used when Check reports a
	// shape the poller does not understand: fetch the final result
	// directly, completed or not.
	FetchResult(ctx context.Context, key Key) (Report, error)
}

// Tracker owns all job records and at most one live poller per key.
// Re-invoking Resume on a key that is already polling is a no-op.
type Tracker struct {
	clock       sched.Clock
	log         *slog.Logger
	interval    time.Duration
	maxAttempts int

	// OnUpdate, when set before any Resume, observes every record change.
	// Called without internal locks held.
	OnUpdate func(Record)

	mu      sync.Mutex
	records map[Key]*Record
	polling map[Key]sched.CancelFunc
}

func NewTracker(clock sched.Clock, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		clock:       clock,
		log:         logger,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		records:     map[Key]*Record{},
		polling:     map[Key]sched.CancelFunc{},
	}
}

// SetBounds overrides the poll interval and attempt ceiling. Zero values
// keep the defaults.
func (t *Tracker) SetBounds(interval time.Duration, maxAttempts int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if interval > 0 {
		t.interval = interval
	}
	if maxAttempts > 0 {
		t.maxAttempts = maxAttempts
	}
}

// Get returns a copy of the record for key.
func (t *Tracker) Get(key Key) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Polling reports whether a live poller owns key.
func (t *Tracker) Polling(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.polling[key]
	return ok
}

// Cancel stops any poller for key and discards its record. The server is
// not told to abandon work.
func (t *Tracker) Cancel(key Key) {
	t.mu.Lock()
	cancel := t.polling[key]
	delete(t.polling, key)
	delete(t.records, key)
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CancelAll drops every record and poller; used on session replacement.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	cancels := make([]sched.CancelFunc, 0, len(t.polling))
	for _, c := range t.polling {
		cancels = append(cancels, c)
	}
	t.polling = map[Key]sched.CancelFunc{}
	t.records = map[Key]*Record{}
	t.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Resume submits-or-resumes tracking for key: one immediate status check,
// then a bounded poll loop if the job is still running. Idempotent while a
// poller for key is live.
func (t *Tracker) Resume(ctx context.Context, key Key, src Source) {
	t.mu.Lock()
	if _, live := t.polling[key]; live {
		t.mu.Unlock()
		t.log.Debug("resume ignored, already polling", "job", key.String())
		return
	}
	if _, ok := t.records[key]; !ok {
		t.records[key] = &Record{Key: key, Status: StatusUnknown}
	}
	t.mu.Unlock()

	report, err := src.Check(ctx, key)
	if err != nil {
		t.finish(key, StatusFailed, fmt.Sprintf("status check failed: %v", err), nil)
		return
	}

	switch {
	case report.Known && report.Status == StatusCompleted:
		t.applyProgress(key, report)
		t.finish(key, StatusCompleted, "", report.Result)
	case report.Known && report.Status == StatusFailed:
		t.finish(key, StatusFailed, failureMessage(report), nil)
	case report.Known:
		// Running or not-yet-found: seed progress and start the loop.
		t.applyProgress(key, report)
		t.setStatus(key, StatusRunning)
		t.startPolling(ctx, key, src)
	default:
		t.fetchDirect(ctx, key, src)
	}
}

// fetchDirect is the fallback for unrecognized status shapes: one direct
// final-result fetch, failing descriptively rather than returning nothing.
func (t *Tracker) fetchDirect(ctx context.Context, key Key, src Source) {
	report, err := src.FetchResult(ctx, key)
	if err == nil && report.Status == StatusCompleted && len(report.Result) > 0 {
		t.finish(key, StatusCompleted, "", report.Result)
		return
	}
	msg := fmt.Sprintf("%s result not available yet - processing may still be in progress", key.Type)
	if err != nil {
		msg = fmt.Sprintf("%s result fetch failed: %v", key.Type, err)
	}
	t.finish(key, StatusFailed, msg, nil)
}

func (t *Tracker) startPolling(ctx context.Context, key Key, src Source) {
	t.mu.Lock()
	t.polling[key] = t.clock.Every(t.interval, func() { t.pollOnce(ctx, key, src) })
	t.mu.Unlock()
	t.notify(key)
}

// pollOnce runs a single bounded attempt. Status updates for one key are
// applied strictly in poll order; attempts never overlap.
func (t *Tracker) pollOnce(ctx context.Context, key Key, src Source) {
	t.mu.Lock()
	rec, ok := t.records[key]
	if !ok || rec.Status.Terminal() {
		t.mu.Unlock()
		t.stopPolling(key)
		return
	}
	rec.Attempts++
	attempts := rec.Attempts
	maxAttempts := t.maxAttempts
	t.mu.Unlock()

	report, err := src.Check(ctx, key)
	if err != nil {
		// Fail fast rather than spin past a broken connection.
		t.log.Warn("poll attempt failed", "job", key.String(), "attempt", attempts, "error", err)
		t.finish(key, StatusFailed, fmt.Sprintf("status check failed: %v", err), nil)
		return
	}

	if report.HasProgress {
		t.applyProgress(key, report)
		t.notify(key)
	}

	switch {
	case report.Known && report.Status == StatusCompleted:
		t.finish(key, StatusCompleted, "", report.Result)
		return
	case report.Known && report.Status == StatusFailed:
		t.finish(key, StatusFailed, failureMessage(report), nil)
		return
	}

	if attempts >= maxAttempts {
		t.finish(key, StatusTimedOut, fmt.Sprintf("%s took too long - please try again", key.Type), nil)
	}
}

func (t *Tracker) applyProgress(key Key, report Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[key]
	if !ok || !report.HasProgress {
		return
	}
	rec.ProgressPercent = report.ProgressPercent
	rec.CurrentUnit = report.CurrentUnit
	rec.TotalUnits = report.TotalUnits
}

func (t *Tracker) setStatus(key Key, to Status) {
	t.mu.Lock()
	rec, ok := t.records[key]
	if ok && canTransition(rec.Status, to) {
		rec.Status = to
	} else if ok {
		t.log.Warn("job status transition rejected", "job", key.String(), "from", string(rec.Status), "to", string(to))
	}
	t.mu.Unlock()
}

// finish moves key to a terminal status, stops its poller, and records the
// outcome.
func (t *Tracker) finish(key Key, to Status, errMsg string, result []byte) {
	t.mu.Lock()
	rec, ok := t.records[key]
	if ok && canTransition(rec.Status, to) {
		rec.Status = to
		rec.ErrorMessage = errMsg
		if to == StatusCompleted {
			rec.Result = result
			rec.ProgressPercent = 100
		}
	}
	t.mu.Unlock()

	t.stopPolling(key)
	t.notify(key)
}

func (t *Tracker) stopPolling(key Key) {
	t.mu.Lock()
	cancel := t.polling[key]
	delete(t.polling, key)
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *Tracker) notify(key Key) {
	t.mu.Lock()
	onUpdate := t.OnUpdate
	var rec Record
	ok := false
	if r, found := t.records[key]; found {
		rec, ok = *r, true
	}
	t.mu.Unlock()
	if ok && onUpdate != nil {
		onUpdate(rec)
	}
}

func failureMessage(report Report) string {
	if report.ErrorMessage != "" {
		return report.ErrorMessage
	}
	return "processing failed"
}
