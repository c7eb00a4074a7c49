package config

import (
	"maps"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultQuietPeriod is how long edits must stop before they are written.
const DefaultQuietPeriod = 120 * time.Millisecond

// Debouncer coalesces partial edits. Each Queue merges its fields into the pending set
// and restarts the quiet period; when the period elapses with no further edits the
// merged set is handed to flush exactly once.
type Debouncer struct {
	clock clock.Clock
	quiet time.Duration
	flush func(map[string]any)

	mu      sync.Mutex
	pending map[string]any
	timer   *clock.Timer
	gen     uint64
}

// NewDebouncer returns a debouncer that calls flush after quiet of inactivity.
func NewDebouncer(clk clock.Clock, quiet time.Duration, flush func(map[string]any)) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{clock: clk, quiet: quiet, flush: flush}
}

// Queue merges fields into the pending edit and re-arms the timer.
func (d *Debouncer) Queue(fields map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		d.pending = make(map[string]any, len(fields))
	}
	maps.Copy(d.pending, fields)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// Pending reports whether an edit is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Flush writes any pending edit immediately and disarms the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fields := d.takeLocked()
	d.mu.Unlock()
	if fields != nil {
		d.flush(fields)
	}
}

// Cancel drops any pending edit without writing it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.takeLocked()
	d.mu.Unlock()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a newer Queue, Flush or Cancel superseded this timer
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fields := d.takeLocked()
	d.mu.Unlock()
	if fields != nil {
		d.flush(fields)
	}
}

func (d *Debouncer) takeLocked() map[string]any {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fields := d.pending
	d.pending = nil
	return fields
}
