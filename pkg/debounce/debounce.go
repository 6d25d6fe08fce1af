// Package debounce delays a call until a quiet period has passed without a
// newer call.
//
// Each Do re-arms a single timer. Only the function given to the last Do
// before the timer expires runs; earlier ones are dropped.
package debounce

import (
	"sync"
	"time"
)

// Timer is the subset of *time.Timer used by the debouncer.
type Timer interface {
	Stop() bool
}

// Clock schedules functions. RealClock uses time.AfterFunc; ManualClock
// lets tests advance time explicitly.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Debouncer is safe for concurrent use.
type Debouncer struct {
	delay time.Duration
	clock Clock

	mu    sync.Mutex
	timer Timer
	// gen identifies the armed timer. A timer whose generation is stale
	// when it fires does nothing, which covers the window where Stop loses
	// the race against an already-fired timer.
	gen uint64
}

// New returns a debouncer with the given quiet period. A nil clock means
// RealClock.
func New(delay time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer{delay: delay, clock: clock}
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Do schedules f to run after the quiet period, replacing any pending call.
func (d *Debouncer) Do(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending call, if any. It reports whether a call was
// pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
