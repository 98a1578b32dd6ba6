// Package timer tracks a single optional deadline against an injectable clock.
package timer

import "time"

// Clock reports the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// Timer holds at most one armed deadline, the zero value is disarmed and uses the wall clock
type Timer struct {
	clock    Clock
	deadline time.Time
	armed    bool
}

func New(clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock
	}
	return &Timer{clock: clock}
}

// Arm replaces any previous deadline with now+d
func (t *Timer) Arm(d time.Duration) {
	t.deadline = t.now().Add(d)
	t.armed = true
}

func (t *Timer) Disarm() {
	t.armed = false
	t.deadline = time.Time{}
}

// Expired reports whether an armed deadline lies strictly in the past
func (t *Timer) Expired() bool {
	return t.armed && t.now().After(t.deadline)
}

func (t *Timer) now() time.Time {
	if t.clock == nil {
		return SystemClock.Now()
	}
	return t.clock.Now()
}

// ManualClock is a Clock that only moves when told to
type ManualClock struct {
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
