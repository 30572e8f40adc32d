// Package clock provides the execution context flowgate primitives post
// their timed continuations to.
//
// Primitives never call time.AfterFunc directly; they go through a Clock so
// tests can substitute a fake one and drive timers deterministically.
package clock

import "time"

// Clock provides the current time and schedules delayed callbacks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for d to elapse and then calls f. The returned Timer
	// can be used to cancel the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback has already fired or been stopped. Stop does not wait for a
	// callback that is already running.
	Stop() bool
}

// System implements Clock using the runtime timer facility.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f on its own goroutine after d.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// OrSystem returns c, or System if c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}
