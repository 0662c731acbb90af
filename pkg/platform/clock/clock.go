// Package clock abstracts time for components that arm timers. Production
// code uses the system clock; tests drive a fake so countdowns and idle
// timeouts are deterministic, the same way request-scoped time is injected
// through pkg/requestcontext for synchronous paths.
package clock

import "time"

// Timer is a single-shot timer that can be stopped before it fires.
// Superseded timers must be stopped, not merely ignored, so a stale fire
// can never race a newer arm.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock supplies the current time and single-shot timers.
type Clock interface {
	Now() time.Time
	// AfterFunc arms a timer that calls fn in its own goroutine after d.
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

// System returns the monotonic system clock.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
