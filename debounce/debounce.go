package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of Call into one invocation of its flush function
// carrying the latest value, once the window has been quiet for Delay.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	flushFn func(T)
	timer   *time.Timer
	value   T
	pending bool
	seq     uint64
}

// New creates a debouncer. The flush function runs on its own goroutine when the timer fires.
func New[T any](delay time.Duration, flushFn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, flushFn: flushFn}
}

// Call stores value and restarts the window.
func (d *Debouncer[T]) Call(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.value = value
	d.pending = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// superseded by a newer Call, Flush or Stop
	if !d.pending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	value := d.take()
	d.mu.Unlock()

	d.flushFn(value)
}

// take clears the pending state; callers hold mu.
func (d *Debouncer[T]) take() T {
	value := d.value
	var zero T
	d.value = zero
	d.pending = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return value
}

// Flush runs a pending call immediately on the calling goroutine.
// It reports whether anything was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	value := d.take()
	d.mu.Unlock()

	d.flushFn(value)
	return true
}

// Stop drops a pending call without running it.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		d.take()
	}
}

// Pending reports whether a call is waiting for its window to expire.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
