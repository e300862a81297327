package widget

// Handle is a live widget instance. Every capability is optional: the
// platform routinely hands back instances missing one or more of these, so
// callers must nil-check before use. Capability calls report platform
// failures as errors rather than crashing the caller.
type Handle struct {
	Play        func() error
	Pause       func() error
	Mute        func() error
	UnMute      func() error
	IsMuted     func() (bool, error)
	CurrentTime func() (float64, error)
	Duration    func() (float64, error)
	State       func() (PlayerState, error)
	SeekTo      func(seconds float64) error
	Destroy     func() error
}
