package testutil

import (
	"sync"
	"time"

	"github.com/marketbridge/chat-sdk/pkg/core"
)

// ManualClock is a core.Clock whose timers fire only when told to.
type ManualClock struct {
	mu     sync.Mutex
	timers []*ManualTimer
}

// NewManualClock creates a clock with no pending timers.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc implements core.Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) core.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ManualTimer{Delay: d, f: f, pending: true}
	c.timers = append(c.timers, t)
	return t
}

// Pending returns the timers that have been neither fired nor stopped.
func (c *ManualClock) Pending() []*ManualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*ManualTimer
	for _, t := range c.timers {
		if t.isPending() {
			out = append(out, t)
		}
	}
	return out
}

// Scheduled returns how many timers were ever scheduled.
func (c *ManualClock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Fire runs every pending timer and returns how many ran.
func (c *ManualClock) Fire() int {
	n := 0
	for _, t := range c.Pending() {
		if t.fire() {
			n++
		}
	}
	return n
}

// ManualTimer is one timer of a ManualClock.
type ManualTimer struct {
	Delay time.Duration

	mu      sync.Mutex
	f       func()
	pending bool
}

// Stop implements core.Timer.
func (t *ManualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.pending
	t.pending = false
	return was
}

// ForceFire runs the callback even if the timer was stopped, the way a
// runtime timer can fire concurrently with Stop.
func (t *ManualTimer) ForceFire() {
	t.mu.Lock()
	t.pending = false
	f := t.f
	t.mu.Unlock()
	f()
}

func (t *ManualTimer) fire() bool {
	t.mu.Lock()
	if !t.pending {
		t.mu.Unlock()
		return false
	}
	t.pending = false
	f := t.f
	t.mu.Unlock()
	f()
	return true
}

func (t *ManualTimer) isPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
