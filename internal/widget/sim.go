package widget

import (
	"sync"
	"time"

	"yt-tutor-console/internal/sched"
)

// SimSDK is an in-process stand-in for the embedded platform. The console
// runs against it (a terminal cannot host the real widget) and it emits the
// same three events a platform adapter would, synchronously.
type SimSDK struct {
	clock sched.Clock

	mu        sync.Mutex
	injected  bool
	resets    int
	durations map[string]float64
}

const simDefaultDuration = 600.0

func NewSimSDK(clock sched.Clock) *SimSDK {
	return &SimSDK{clock: clock, durations: map[string]float64{}}
}

// SetDuration fixes the reported duration for a video id. Unknown ids report
// the default.
func (s *SimSDK) SetDuration(videoID string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[videoID] = seconds
}

func (s *SimSDK) Inject(ready func()) {
	s.mu.Lock()
	s.injected = true
	s.mu.Unlock()
	ready()
}

func (s *SimSDK) Present() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injected
}

func (s *SimSDK) ResetContainer(containerID string) {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func (s *SimSDK) Construct(containerID, videoID string, ev Events) error {
	s.mu.Lock()
	duration, ok := s.durations[videoID]
	s.mu.Unlock()
	if !ok {
		duration = simDefaultDuration
	}

	h := &simInstance{clock: s.clock, duration: duration, ev: ev}
	if ev.OnReady != nil {
		ev.OnReady(h.handle())
	}
	return nil
}

// simInstance advances a virtual playhead against the shared clock while
// "playing".
type simInstance struct {
	clock sched.Clock
	ev    Events

	mu        sync.Mutex
	duration  float64
	base      float64
	resumedAt time.Time
	playing   bool
	muted     bool
	destroyed bool
}

func (i *simInstance) handle() *Handle {
	return &Handle{
		Play:        i.play,
		Pause:       i.pause,
		Mute:        func() error { return i.setMuted(true) },
		UnMute:      func() error { return i.setMuted(false) },
		IsMuted:     i.isMuted,
		CurrentTime: i.currentTime,
		Duration:    i.getDuration,
		State:       i.state,
		SeekTo:      i.seekTo,
		Destroy:     i.destroy,
	}
}

func (i *simInstance) play() error {
	i.mu.Lock()
	if !i.playing && !i.destroyed {
		i.playing = true
		i.resumedAt = i.clock.Now()
	}
	ev := i.ev
	i.mu.Unlock()
	if ev.OnStateChange != nil {
		ev.OnStateChange(StatePlaying)
	}
	return nil
}

func (i *simInstance) pause() error {
	i.mu.Lock()
	if i.playing {
		i.base = i.positionLocked()
		i.playing = false
	}
	ev := i.ev
	i.mu.Unlock()
	if ev.OnStateChange != nil {
		ev.OnStateChange(StatePaused)
	}
	return nil
}

func (i *simInstance) setMuted(muted bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.muted = muted
	return nil
}

func (i *simInstance) isMuted() (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.muted, nil
}

func (i *simInstance) currentTime() (float64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.positionLocked(), nil
}

func (i *simInstance) positionLocked() float64 {
	pos := i.base
	if i.playing {
		pos += i.clock.Now().Sub(i.resumedAt).Seconds()
	}
	if pos > i.duration {
		pos = i.duration
	}
	return pos
}

func (i *simInstance) getDuration() (float64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.duration, nil
}

func (i *simInstance) state() (PlayerState, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return StateUnstarted, nil
	}
	if i.playing {
		if i.positionLocked() >= i.duration {
			return StateEnded, nil
		}
		return StatePlaying, nil
	}
	return StatePaused, nil
}

func (i *simInstance) seekTo(seconds float64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if seconds > i.duration {
		seconds = i.duration
	}
	i.base = seconds
	i.resumedAt = i.clock.Now()
	return nil
}

func (i *simInstance) destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroyed = true
	i.playing = false
	return nil
}
