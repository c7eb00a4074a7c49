package remap

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/output"
)

// Key timing.
const (
	TapHold        = 20 * time.Millisecond
	ArrowTapHold   = 10 * time.Millisecond
	RepeatInterval = 250 * time.Millisecond
	RepeatStickY   = 0.65
)

// Chord fires its key once when all of its controls become held, and arms again only
// after the condition has gone false.
type Chord struct {
	Controls []devicemap.Control
	Key      output.Key
	armed    bool
}

// Update feeds the current condition and reports whether the key should fire.
func (c *Chord) Update(held bool) bool {
	if !held {
		c.armed = false
		return false
	}
	if c.armed {
		return false
	}
	c.armed = true
	return true
}

func (c *Chord) satisfied(r reading) bool {
	for _, ctl := range c.Controls {
		if !r.held(ctl) {
			return false
		}
	}
	return len(c.Controls) > 0
}

// defaultChords returns the fixed key bindings, unarmed.
func defaultChords() []*Chord {
	return []*Chord{
		{Controls: []devicemap.Control{devicemap.L1LB, devicemap.R3}, Key: output.KeyF8},
		{Controls: []devicemap.Control{devicemap.L3}, Key: output.KeyF11},
		{Controls: []devicemap.Control{devicemap.L1LB, devicemap.Start}, Key: output.KeyF12},
	}
}

// Repeater fires Up or Down at a fixed interval while a stick is held past a threshold,
// tracking each direction's deadline separately. A zero deadline fires immediately.
type Repeater struct {
	Interval  time.Duration
	Threshold float64

	nextUp   time.Time
	nextDown time.Time
}

// NewRepeater returns a repeater with the default cadence and threshold.
func NewRepeater() *Repeater {
	return &Repeater{Interval: RepeatInterval, Threshold: RepeatStickY}
}

// Update feeds whether the modifiers are held and the stick value; it returns the key
// to fire, if any.
func (r *Repeater) Update(now time.Time, enabled bool, v float64) (output.Key, bool) {
	if !enabled || !(math.Abs(v) >= r.Threshold) {
		r.nextUp, r.nextDown = time.Time{}, time.Time{}
		return 0, false
	}
	if v > 0 {
		r.nextDown = time.Time{}
		if now.Before(r.nextUp) {
			return 0, false
		}
		r.nextUp = now.Add(r.Interval)
		return output.KeyUp, true
	}
	r.nextUp = time.Time{}
	if now.Before(r.nextDown) {
		return 0, false
	}
	r.nextDown = now.Add(r.Interval)
	return output.KeyDown, true
}

// tapper presses keys and releases them on a later tick once their hold has elapsed.
type tapper struct {
	sink    output.Sink
	logger  *zap.SugaredLogger
	pending map[output.Key]time.Time
	sent    func()
}

func newTapper(sink output.Sink, logger *zap.SugaredLogger, sent func()) *tapper {
	return &tapper{sink: sink, logger: logger, pending: make(map[output.Key]time.Time), sent: sent}
}

func (t *tapper) tap(k output.Key, now time.Time, hold time.Duration) {
	if _, down := t.pending[k]; down {
		t.up(k)
	}
	if err := t.sink.KeyDown(k); err != nil {
		t.logger.Debugw("key down failed", "key", k, "error", err)
		return
	}
	t.pending[k] = now.Add(hold)
	if t.sent != nil {
		t.sent()
	}
}

// release lets go of every key whose hold has elapsed by now.
func (t *tapper) release(now time.Time) {
	for k, at := range t.pending {
		if !now.Before(at) {
			t.up(k)
		}
	}
}

func (t *tapper) releaseAll() {
	for k := range t.pending {
		t.up(k)
	}
}

func (t *tapper) up(k output.Key) {
	delete(t.pending, k)
	if err := t.sink.KeyUp(k); err != nil {
		t.logger.Debugw("key up failed", "key", k, "error", err)
	}
}
