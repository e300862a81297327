package widget

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"yt-tutor-console/internal/sched"
)

// Phase is the controller's lifecycle state.
type Phase int

const (
	Unloaded Phase = iota
	SdkLoading
	SdkReady
	Instantiating
	Live
	Destroying
	Errored
)

func (p Phase) String() string {
	switch p {
	case Unloaded:
		return "unloaded"
	case SdkLoading:
		return "sdk_loading"
	case SdkReady:
		return "sdk_ready"
	case Instantiating:
		return "instantiating"
	case Live:
		return "live"
	case Destroying:
		return "destroying"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Sink receives controller events. The reconciliation loop and the shell
// register one; tests substitute their own.
type Sink interface {
	// WidgetLive fires once per construction, after the settle delay, with
	// the duration reported at ready time (may be under-reported; the
	// reconciliation loop corrects it).
	WidgetLive(durationSeconds float64)
	WidgetStateChanged(s PlayerState)
	// WidgetFailed carries a user-facing message. The controller does not
	// auto-retry.
	WidgetFailed(msg string)
}

// Construction staging delays, tiered by confidence in SDK readiness. The
// platform sometimes sets its readiness flag before the constructor is
// actually safe, hence the longer waits on the weaker signals.
const (
	delayConfirmedReady     = 300 * time.Millisecond
	delayPresentUnconfirmed = 600 * time.Millisecond
	delayAfterReadySignal   = 400 * time.Millisecond
	settleDelay             = 100 * time.Millisecond
)

const containerID = "player-container"

// Controller owns creation and teardown of the playback widget and exposes a
// command/query surface that is safe to call in any phase.
type Controller struct {
	sdk    SDK
	loader *Loader
	clock  sched.Clock
	log    *slog.Logger

	mu            sync.Mutex
	phase         Phase
	videoID       string
	handle        *Handle
	initializing  bool
	sink          Sink
	pendingInit   sched.CancelFunc
	pendingSettle sched.CancelFunc
}

func NewController(sdk SDK, loader *Loader, clock sched.Clock, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{sdk: sdk, loader: loader, clock: clock, log: logger, phase: Unloaded}
}

// SetSink registers the event sink. Must be called before Attach.
func (c *Controller) SetSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) VideoID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoID
}

// Attach builds a widget for videoID. Calling it again with the same id while
// the instance is confirmed Live is a no-op; a different id tears the old
// instance down first. Concurrent attaches are suppressed while a
// construction is staged.
func (c *Controller) Attach(videoID string) {
	c.mu.Lock()
	if c.initializing {
		c.log.Debug("attach suppressed, construction in progress", "video_id", videoID)
		c.mu.Unlock()
		return
	}
	if c.videoID == videoID && c.handle != nil && c.phase == Live {
		c.log.Debug("attach no-op, widget already live", "video_id", videoID)
		c.mu.Unlock()
		return
	}

	c.initializing = true
	c.videoID = videoID

	if c.handle != nil {
		c.destroyHandleLocked()
	}
	c.cancelPendingLocked()
	c.phase = Instantiating
	c.mu.Unlock()

	c.sdk.ResetContainer(containerID)
	c.stageConstruction(videoID)
}

// stageConstruction schedules the actual constructor call with a delay tiered
// by how confident we are that the SDK is usable.
func (c *Controller) stageConstruction(videoID string) {
	switch {
	case c.loader.Phase() == LoadReady:
		c.scheduleConstruct(videoID, delayConfirmedReady)
	case c.sdk.Present():
		c.scheduleConstruct(videoID, delayPresentUnconfirmed)
	default:
		c.mu.Lock()
		c.phase = SdkLoading
		c.mu.Unlock()
		c.loader.Ensure(func() {
			c.mu.Lock()
			stale := c.videoID != videoID || !c.initializing
			if !stale {
				c.phase = SdkReady
			}
			c.mu.Unlock()
			if stale {
				return
			}
			c.scheduleConstruct(videoID, delayAfterReadySignal)
		})
	}
}

func (c *Controller) scheduleConstruct(videoID string, delay time.Duration) {
	c.mu.Lock()
	c.pendingInit = c.clock.After(delay, func() { c.construct(videoID) })
	c.mu.Unlock()
}

func (c *Controller) construct(videoID string) {
	c.mu.Lock()
	if c.videoID != videoID || !c.initializing {
		c.mu.Unlock()
		return
	}
	c.phase = Instantiating
	c.mu.Unlock()

	err := c.sdk.Construct(containerID, videoID, Events{
		OnReady:       func(h *Handle) { c.onReady(videoID, h) },
		OnStateChange: c.onStateChange,
		OnError:       c.onError,
	})
	if err != nil {
		c.log.Error("widget construction failed", "video_id", videoID, "error", err)
		c.fail(fmt.Sprintf("failed to initialize video player: %v", err))
	}
}

func (c *Controller) onReady(videoID string, h *Handle) {
	c.mu.Lock()
	if c.videoID != videoID {
		c.mu.Unlock()
		return
	}
	c.handle = h
	c.phase = Live
	c.initializing = false

	duration := 0.0
	if h.Duration != nil {
		if d, err := h.Duration(); err == nil {
			duration = d
		} else {
			c.log.Warn("duration read failed at ready", "error", err)
		}
	}
	sink := c.sink
	// Platforms under-report duration and state immediately on ready, so the
	// live notification waits out a short settle delay.
	c.pendingSettle = c.clock.After(settleDelay, func() {
		if sink != nil {
			sink.WidgetLive(duration)
		}
	})
	c.mu.Unlock()
}

func (c *Controller) onStateChange(s PlayerState) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink.WidgetStateChanged(s)
	}
}

func (c *Controller) onError(code int) {
	c.log.Error("widget reported error", "code", code)
	c.fail(fmt.Sprintf("player error: %d", code))
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	c.phase = Errored
	c.initializing = false
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink.WidgetFailed(msg)
	}
}

// Destroy tears the widget down. Native teardown is best-effort; local state
// is cleared no matter what it does.
func (c *Controller) Destroy() {
	c.mu.Lock()
	c.phase = Destroying
	c.cancelPendingLocked()
	c.destroyHandleLocked()
	c.videoID = ""
	c.initializing = false
	c.phase = Unloaded
	c.mu.Unlock()
}

func (c *Controller) destroyHandleLocked() {
	h := c.handle
	c.handle = nil
	if h == nil || h.Destroy == nil {
		return
	}
	if err := h.Destroy(); err != nil {
		c.log.Warn("widget teardown failed", "error", err)
	}
}

func (c *Controller) cancelPendingLocked() {
	if c.pendingInit != nil {
		c.pendingInit()
		c.pendingInit = nil
	}
	if c.pendingSettle != nil {
		c.pendingSettle()
		c.pendingSettle = nil
	}
}

// Commands. Each is feature-detected against the current handle and absorbs
// platform failures; a missing capability or a dead widget is a logged no-op.

func (c *Controller) Play()   { c.command("play", func(h *Handle) error { return call(h.Play) }) }
func (c *Controller) Pause()  { c.command("pause", func(h *Handle) error { return call(h.Pause) }) }
func (c *Controller) Mute()   { c.command("mute", func(h *Handle) error { return call(h.Mute) }) }
func (c *Controller) UnMute() { c.command("unmute", func(h *Handle) error { return call(h.UnMute) }) }

// Seek returns the platform error so seek protocols can observe failures;
// it still never panics and logs on behalf of fire-and-forget callers.
func (c *Controller) Seek(seconds float64) error {
	var seekErr error
	c.command("seek", func(h *Handle) error {
		if h.SeekTo == nil {
			return nil
		}
		seekErr = h.SeekTo(seconds)
		return seekErr
	})
	return seekErr
}

func (c *Controller) command(name string, fn func(h *Handle) error) {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h == nil {
		return
	}
	if err := fn(h); err != nil {
		c.log.Warn("widget command failed", "command", name, "error", err)
	}
}

func call(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// Queries. Each returns ok=false when the widget is absent, the capability is
// missing, or the platform read failed, so pollers can keep prior values.

func (c *Controller) QueryMuted() (bool, bool) {
	h := c.snapshot()
	if h == nil || h.IsMuted == nil {
		return false, false
	}
	v, err := h.IsMuted()
	if err != nil {
		c.log.Debug("mute read failed", "error", err)
		return false, false
	}
	return v, true
}

func (c *Controller) QueryCurrentTime() (float64, bool) {
	h := c.snapshot()
	if h == nil || h.CurrentTime == nil {
		return 0, false
	}
	v, err := h.CurrentTime()
	if err != nil {
		c.log.Debug("time read failed", "error", err)
		return 0, false
	}
	return v, true
}

func (c *Controller) QueryDuration() (float64, bool) {
	h := c.snapshot()
	if h == nil || h.Duration == nil {
		return 0, false
	}
	v, err := h.Duration()
	if err != nil {
		c.log.Debug("duration read failed", "error", err)
		return 0, false
	}
	return v, true
}

func (c *Controller) QueryState() (PlayerState, bool) {
	h := c.snapshot()
	if h == nil || h.State == nil {
		return StateUnstarted, false
	}
	v, err := h.State()
	if err != nil {
		c.log.Debug("state read failed", "error", err)
		return StateUnstarted, false
	}
	return v, true
}

func (c *Controller) snapshot() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}
