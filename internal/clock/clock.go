package clock

import "time"

// Clock schedules time-based work. The production implementation delegates to
// the time package; tests use Fake to drive timers deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc runs fn after d has elapsed. fn runs at most once; Stop
	// prevents it from running if it has not fired yet.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// System returns a Clock backed by the time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (t systemTimer) Stop() bool {
	return t.t.Stop()
}
