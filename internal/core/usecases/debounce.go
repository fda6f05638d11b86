package usecases

import (
	"sync"
	"time"
)

// Debouncer delays fire until Trigger has not been called for window. Only
// the value of the last Trigger in a burst is delivered. At most one timer is
// live at a time.
type Debouncer[T any] struct {
	mu     sync.Mutex
	window time.Duration
	fire   func(T)
	timer  *time.Timer
	gen    uint64
}

// NewDebouncer creates a debouncer. fire runs on a timer goroutine.
func NewDebouncer[T any](window time.Duration, fire func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, fire: fire}
}

// Trigger restarts the quiescence window with v. It reports whether a pending
// trigger was superseded.
func (d *Debouncer[T]) Trigger(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	superseded := false
	if d.timer != nil {
		superseded = d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fire(v)
	})
	return superseded
}

// Cancel drops any pending trigger.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a trigger is waiting for the window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
