package query

import (
	"sync"
	"time"
)

// DebounceInterval is the quiet period before search text is committed.
const DebounceInterval = 300 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via StdAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// StdAfterFunc schedules with the runtime timer.
func StdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer delays a value until no new value was pushed for the interval.
// Only the last value of a burst reaches the commit callback.
type Debouncer struct {
	interval time.Duration
	after    AfterFunc
	commit   func(string)

	mu         sync.Mutex
	timer      Timer
	seq        uint64
	pending    string
	hasPending bool
}

// DebounceOption configures a Debouncer.
type DebounceOption func(*Debouncer)

// WithAfterFunc replaces the timer source, for tests.
func WithAfterFunc(fn AfterFunc) DebounceOption {
	return func(d *Debouncer) { d.after = fn }
}

// NewDebouncer returns a debouncer that calls commit with the last pushed
// value once interval has passed without another push.
func NewDebouncer(interval time.Duration, commit func(string), opts ...DebounceOption) *Debouncer {
	d := &Debouncer{
		interval: interval,
		after:    StdAfterFunc,
		commit:   commit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push records a value and restarts the quiet period.
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = value
	d.hasPending = true
	d.timer = d.after(d.interval, func() { d.fire(seq) })
}

// fire commits the pending value if seq is still the latest push. A timer
// that was stopped too late to prevent its callback lands here with an old
// seq and does nothing.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.hasPending {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.hasPending = false
	d.timer = nil
	d.mu.Unlock()

	d.commit(value)
}

// Flush commits the pending value now. It reports whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.hasPending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	value := d.pending
	d.hasPending = false
	d.mu.Unlock()

	d.commit(value)
	return true
}

// Stop discards the pending value.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.hasPending = false
}

// Pending returns the value waiting to be committed.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.hasPending
}
