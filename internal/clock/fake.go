package clock

import (
	"sync"
	"time"
)

// Fake is a Clock for tests. Now returns a controllable instant, and After
// auto-advances the fake time by the requested duration and fires
// immediately, so code that waits between retry attempts runs instantly
// while its recorded timestamps stay consistent.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After advances the fake time by d and returns a channel that already
// holds the new time, so selects on it never block.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.now = f.now.Add(d)
	fired := f.now
	f.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- fired
	return ch
}

// Advance moves the fake time forward by d without firing any waiters.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the fake time to the given instant.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Ensure Fake implements Clock.
var _ Clock = (*Fake)(nil)
