// Package sched wraps delayed and repeating callbacks behind cancellation
// handles so the lifecycle controller, reconciliation loop, and job pollers
// can share one clock and tests can drive time by hand.
package sched

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback. Calling it more than once is safe;
// calling it after the callback ran is a no-op.
type CancelFunc func()

// Clock issues one-shot and repeating callbacks.
type Clock interface {
	Now() time.Time
	// After runs fn once after d. fn runs on an unspecified goroutine.
	After(d time.Duration, fn func()) CancelFunc
	// Every runs fn every d until cancelled. Invocations do not overlap.
	Every(d time.Duration, fn func()) CancelFunc
}

type systemClock struct{}

// System returns the wall-clock backed Clock.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (systemClock) Every(d time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(d)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}
}
