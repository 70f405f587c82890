package object

import "time"

// Deferred is a single cancellable delayed action driven by the game tick.
// Starting it while pending replaces the pending action.
type Deferred struct {
	remaining time.Duration
	action    func()
	pending   bool
}

// Start schedules action to run once after d of advanced time.
func (d *Deferred) Start(after time.Duration, action func()) {
	d.remaining = after
	d.action = action
	d.pending = true
}

// Cancel drops the pending action, if any.
func (d *Deferred) Cancel() {
	d.pending = false
	d.action = nil
	d.remaining = 0
}

// Pending reports whether an action is scheduled.
func (d *Deferred) Pending() bool { return d.pending }

// Remaining returns the time left before the action runs.
func (d *Deferred) Remaining() time.Duration {
	if !d.pending {
		return 0
	}
	return d.remaining
}

// Advance moves the timer forward by dt and runs the action once it is due.
// Reports whether the action ran.
func (d *Deferred) Advance(dt time.Duration) bool {
	if !d.pending {
		return false
	}
	d.remaining -= dt
	if d.remaining > 0 {
		return false
	}
	action := d.action
	d.pending = false
	d.action = nil
	d.remaining = 0
	if action != nil {
		action()
	}
	return true
}
