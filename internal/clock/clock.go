// Package clock provides an abstraction for time operations to improve testability.
// Instead of calling time.Now() or time.After() directly, code can use the Clock
// interface which can be swapped for a fake in tests to control time-dependent
// behavior such as retry eligibility without real wall-clock sleeps.
package clock

import "time"

// Clock is an interface for time operations.
// This allows code to be tested with fake clocks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then delivers the current
	// time on the returned channel, mirroring time.After.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// After delegates to time.After.
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Ensure RealClock implements Clock.
var _ Clock = RealClock{}
