package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gantry/internal/clock"
)

func TestRealClock_Now(t *testing.T) {
	c := clock.RealClock{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	assert.False(t, got.Before(before), "Now should not be before the test started")
	assert.False(t, got.After(after), "Now should not be after the test finished")
}

func TestRealClock_After(t *testing.T) {
	c := clock.RealClock{}

	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After(1ms) did not fire within a second")
	}
}

func TestFake_NowIsStable(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	assert.Equal(t, start, f.Now())
	assert.Equal(t, start, f.Now(), "Now must not drift on its own")
}

func TestFake_AfterAdvancesAndFiresImmediately(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	var fired time.Time
	select {
	case fired = <-f.After(5 * time.Second):
	default:
		t.Fatal("Fake.After must fire without blocking")
	}

	require.Equal(t, start.Add(5*time.Second), fired)
	assert.Equal(t, start.Add(5*time.Second), f.Now(), "After must advance the fake time")
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	f.Advance(90 * time.Minute)

	assert.Equal(t, start.Add(90*time.Minute), f.Now())
}

func TestFake_Set(t *testing.T) {
	f := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	target := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)

	f.Set(target)

	assert.Equal(t, target, f.Now())
}
