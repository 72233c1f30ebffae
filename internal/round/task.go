package round

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task is a scheduled callback that can be canceled before it runs.
// A periodic task re-arms itself on a fixed grid measured from its start.
type Task struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	timer    clockwork.Timer
	interval time.Duration
	next     time.Time
	fn       func()
	canceled bool
	done     bool
}

// After runs fn once after d.
func After(clock clockwork.Clock, d time.Duration, fn func()) *Task {
	t := &Task{clock: clock, fn: fn}
	t.mu.Lock()
	t.next = clock.Now().Add(d)
	t.timer = clock.AfterFunc(d, t.fire)
	t.mu.Unlock()
	return t
}

// Every runs fn every interval until canceled.
func Every(clock clockwork.Clock, interval time.Duration, fn func()) *Task {
	t := &Task{clock: clock, fn: fn, interval: interval}
	t.mu.Lock()
	t.next = clock.Now().Add(interval)
	t.timer = clock.AfterFunc(interval, t.fire)
	t.mu.Unlock()
	return t
}

func (t *Task) fire() {
	t.mu.Lock()
	if t.canceled || t.done {
		t.mu.Unlock()
		return
	}
	if t.interval > 0 {
		now := t.clock.Now()
		for !t.next.After(now) {
			t.next = t.next.Add(t.interval)
		}
		t.timer = t.clock.AfterFunc(t.next.Sub(now), t.fire)
	} else {
		t.done = true
	}
	t.mu.Unlock()
	t.fn()
}

// Cancel stops the task. A callback already running is not interrupted.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.canceled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Pending reports whether the task can still fire.
func (t *Task) Pending() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.canceled && !t.done
}

// Periodic reports whether the task repeats.
func (t *Task) Periodic() bool {
	return t != nil && t.interval > 0
}
