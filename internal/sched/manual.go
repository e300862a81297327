package sched

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock driven explicitly by tests. Callbacks fire synchronously
// on the goroutine calling Advance, in deadline order. Callbacks may schedule
// or cancel further timers.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	deadline time.Time
	period   time.Duration // 0 for one-shot
	seq      int
	fn       func()
	stopped  bool
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, fn func()) CancelFunc {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) CancelFunc {
	return m.add(d, d, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{deadline: m.now.Add(d), period: period, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.stopped = true
	}
}

// Advance moves the clock forward by d, firing every timer that comes due.
// A repeating timer fires once per elapsed period.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest live timer due at or before target, advancing the
// clock to its deadline and rescheduling it if repeating.
func (m *Manual) nextDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live

	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].deadline.Equal(m.timers[j].deadline) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].deadline.Before(m.timers[j].deadline)
	})

	for _, t := range m.timers {
		if t.deadline.After(target) {
			return nil
		}
		if t.deadline.After(m.now) {
			m.now = t.deadline
		}
		if t.period > 0 {
			t.deadline = t.deadline.Add(t.period)
		} else {
			t.stopped = true
		}
		return t
	}
	return nil
}
