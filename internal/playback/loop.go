// Package playback keeps a local view of playback state reconciled against
// the widget's ground truth. The widget is polled once a second; the slider
// fields stay locally authoritative for the duration of a user drag so the
// poll never fights an in-progress gesture.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"yt-tutor-console/internal/sched"
	"yt-tutor-console/internal/widget"
)

const (
	tickInterval = time.Second
	// Rendering placeholder used until the widget reports a real duration.
	placeholderDuration = 100.0
)

// Widget is the command/query surface the loop reconciles against. The
// lifecycle controller satisfies it.
type Widget interface {
	QueryState() (widget.PlayerState, bool)
	QueryMuted() (bool, bool)
	QueryCurrentTime() (float64, bool)
	QueryDuration() (float64, bool)
	Seek(seconds float64) error
}

// State is one snapshot of the merged view.
type State struct {
	CurrentTime   float64
	Duration      float64
	DurationKnown bool
	Playing       bool
	Muted         bool
	SliderPos     float64
	UserSeeking   bool
}

// RenderDuration is the duration to draw: the real one once known, the
// placeholder before that. The placeholder must never feed seek math.
func (s State) RenderDuration() float64 {
	if s.DurationKnown {
		return s.Duration
	}
	return placeholderDuration
}

// Loop owns the per-second reconciliation ticks and the seek protocol.
type Loop struct {
	w     Widget
	clock sched.Clock
	log   *slog.Logger

	mu     sync.Mutex
	state  State
	cancel sched.CancelFunc
}

func NewLoop(w Widget, clock sched.Clock, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{w: w, clock: clock, log: logger}
}

// Start begins ticking, first running one immediate pass. A previous tick
// owner is cancelled; the caller seeds the duration captured at widget-ready
// time, which the next pass corrects if the platform under-reported it.
func (l *Loop) Start(readyDuration float64) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	if readyDuration > 0 {
		l.state.Duration = readyDuration
		l.state.DurationKnown = true
	}
	l.cancel = l.clock.Every(tickInterval, l.Reconcile)
	l.mu.Unlock()

	l.Reconcile()
}

// Stop halts ticking and resets local state.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.state = State{}
}

// Reconcile runs one poll pass. Every read is independently guarded; a
// failed read keeps the prior value, and nothing here can panic the ticker.
func (l *Loop) Reconcile() {
	playing, playingOK := false, false
	if s, ok := l.w.QueryState(); ok {
		playing, playingOK = s == widget.StatePlaying, true
	}
	muted, mutedOK := l.w.QueryMuted()
	current, currentOK := l.w.QueryCurrentTime()
	duration, durationOK := l.w.QueryDuration()

	l.mu.Lock()
	defer l.mu.Unlock()
	if playingOK {
		l.state.Playing = playing
	}
	if mutedOK {
		l.state.Muted = muted
	}
	// The slider is the user's while a drag is active; polled time must not
	// overwrite it mid-gesture.
	if !l.state.UserSeeking && currentOK {
		l.state.CurrentTime = current
		l.state.SliderPos = current
	}
	if durationOK && duration > 0 {
		l.state.Duration = duration
		l.state.DurationKnown = true
	}
}

// State returns a snapshot.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// OnSliderMove records a slider drag position. The first move of a gesture
// marks the user as seeking.
func (l *Loop) OnSliderMove(seconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.SliderPos = seconds
	l.state.UserSeeking = true
}

// OnSliderRelease commits the held position to the widget. The seeking flag
// clears even when the seek command fails.
func (l *Loop) OnSliderRelease() {
	l.mu.Lock()
	if !l.state.UserSeeking {
		l.mu.Unlock()
		return
	}
	target := l.state.SliderPos
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.state.UserSeeking = false
		l.mu.Unlock()
	}()

	if err := l.w.Seek(target); err != nil {
		l.log.Warn("slider seek failed", "target", target, "error", err)
		return
	}

	l.mu.Lock()
	l.state.CurrentTime = target
	l.mu.Unlock()
}

// SkipBy seeks relative to the current position, clamped into the known
// range, and updates local state optimistically rather than waiting a tick.
func (l *Loop) SkipBy(deltaSeconds float64) {
	l.mu.Lock()
	target := l.state.CurrentTime + deltaSeconds
	if target < 0 {
		target = 0
	}
	if l.state.DurationKnown && target > l.state.Duration {
		target = l.state.Duration
	}
	l.mu.Unlock()

	if err := l.w.Seek(target); err != nil {
		l.log.Warn("skip seek failed", "target", target, "error", err)
		return
	}

	l.mu.Lock()
	l.state.CurrentTime = target
	l.state.SliderPos = target
	l.mu.Unlock()
}

// SeekTo jumps to an absolute position (transcript timestamp links), clamped
// like SkipBy, and starts playback from there when the widget allows it.
func (l *Loop) SeekTo(seconds float64) {
	l.mu.Lock()
	target := seconds
	if target < 0 {
		target = 0
	}
	if l.state.DurationKnown && target > l.state.Duration {
		target = l.state.Duration
	}
	l.mu.Unlock()

	if err := l.w.Seek(target); err != nil {
		l.log.Warn("absolute seek failed", "target", target, "error", err)
		return
	}

	l.mu.Lock()
	l.state.CurrentTime = target
	l.state.SliderPos = target
	l.mu.Unlock()
}

// CurrentTime is the position queries get stamped with.
func (l *Loop) CurrentTime() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.CurrentTime
}
