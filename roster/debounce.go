package roster

import (
	"sync"
	"time"

	"github.com/jrsteele09/syllabus-tracker/clock"
)

// Debouncer runs only the last function triggered within its window.
type Debouncer struct {
	clock  clock.Clock
	window time.Duration

	mu    sync.Mutex
	timer clock.Timer
	gen   uint64
}

func NewDebouncer(c clock.Clock, window time.Duration) *Debouncer {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer{clock: c, window: window}
}

// Trigger schedules f after the window, replacing whatever was pending. A non-positive
// window runs f immediately.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	d.stopLocked()
	d.gen++
	if d.window <= 0 {
		d.mu.Unlock()
		f()
		return
	}
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
	d.mu.Unlock()
}

// Stop drops the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
