// Package widget owns the lifecycle of the externally-hosted playback
// widget: loading the platform SDK, constructing instances, and tearing them
// down. The platform signals readiness asynchronously and its handles may be
// missing any capability, so every interaction is feature-detected and
// failure-tolerant.
package widget

import "sync"

// PlayerState mirrors the platform's playback state codes.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

// Events receives the platform's construction callbacks.
type Events struct {
	OnReady       func(h *Handle)
	OnStateChange func(s PlayerState)
	OnError       func(code int)
}

// SDK is the embedded playback platform. Implementations wrap whatever the
// surrounding shell embeds; tests and the console use the simulated one.
type SDK interface {
	// Inject begins loading the platform and arranges for ready to run once
	// the constructor is safely callable. Repeat calls must be tolerated;
	// the Loader guarantees it is invoked at most once per process.
	Inject(ready func())
	// Present reports whether the platform object exists at all, even if
	// readiness has not been signaled yet. The platform is known to expose
	// its object before the constructor is safe to call.
	Present() bool
	// ResetContainer discards and recreates the named mount point. The
	// platform cannot re-parent a live instance into an emptied container,
	// so a fresh one is required before every construction.
	ResetContainer(containerID string)
	// Construct builds a new instance in the container. The handle arrives
	// via ev.OnReady; a synchronous failure is returned directly.
	Construct(containerID, videoID string, ev Events) error
}

// LoadPhase is the process-wide SDK load lifecycle.
type LoadPhase int

const (
	LoadNotRequested LoadPhase = iota
	LoadPending
	LoadReady
)

func (p LoadPhase) String() string {
	switch p {
	case LoadNotRequested:
		return "not_requested"
	case LoadPending:
		return "pending"
	case LoadReady:
		return "ready"
	}
	return "unknown"
}

// Loader tracks whether the SDK load has begun and whether the platform has
// signaled readiness. Callbacks registered before readiness are invoked
// exactly once on the transition to LoadReady; callbacks registered after
// run immediately.
type Loader struct {
	mu      sync.Mutex
	sdk     SDK
	phase   LoadPhase
	pending []func()
}

func NewLoader(sdk SDK) *Loader {
	return &Loader{sdk: sdk}
}

func (l *Loader) Phase() LoadPhase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Ensure injects the SDK at most once and runs onReady when the platform is
// usable. Concurrent callers share the single load.
func (l *Loader) Ensure(onReady func()) {
	l.mu.Lock()
	switch l.phase {
	case LoadReady:
		l.mu.Unlock()
		if onReady != nil {
			onReady()
		}
		return
	case LoadPending:
		if onReady != nil {
			l.pending = append(l.pending, onReady)
		}
		l.mu.Unlock()
		return
	}
	l.phase = LoadPending
	if onReady != nil {
		l.pending = append(l.pending, onReady)
	}
	sdk := l.sdk
	l.mu.Unlock()

	sdk.Inject(l.markReady)
}

func (l *Loader) markReady() {
	l.mu.Lock()
	if l.phase == LoadReady {
		l.mu.Unlock()
		return
	}
	l.phase = LoadReady
	callbacks := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
