package mention

import (
	"sync"
	"time"
)

// CancelFunc invalidates a scheduled task. Calling it after the task has
// fired is harmless.
type CancelFunc func()

// Scheduler abstracts delayed execution so the debounce and staleness rules
// stay enforceable in headless tests. The production implementation wraps
// time.AfterFunc; tests substitute a manually stepped scheduler.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler schedules with real timers.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Debouncer coalesces rapid calls: a task runs only after the configured
// delay has elapsed with no newer call. Each Trigger invalidates whatever
// was pending before it.
type Debouncer struct {
	mu     sync.Mutex
	sched  Scheduler
	delay  time.Duration
	cancel CancelFunc
}

// NewDebouncer creates a debouncer over the given scheduler.
func NewDebouncer(delay time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = TimerScheduler{}
	}
	return &Debouncer{sched: sched, delay: delay}
}

// Trigger schedules fn, cancelling any previously pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = d.sched.Schedule(d.delay, fn)
}

// Cancel invalidates any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
