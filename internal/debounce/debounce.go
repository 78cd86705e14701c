// Package debounce provides a cancellable fire-once timer used to
// coalesce bursts of mutations into a single delayed action.
package debounce

import (
	"sync"
	"time"
)

// Timer runs a function once after a quiet period. Arming an already
// armed timer cancels the pending run and restarts the countdown.
type Timer struct {
	mu sync.Mutex
	t  *time.Timer
}

// Arm schedules fn to run after delay, cancelling any pending run.
func (d *Timer) Arm(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
	d.t = time.AfterFunc(delay, func() {
		d.mu.Lock()
		d.t = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel stops a pending run, if any.
func (d *Timer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
		d.t = nil
	}
}

// Pending reports whether a run is scheduled.
func (d *Timer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.t != nil
}
