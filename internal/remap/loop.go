// Package remap turns raw controller readings into camera-relative virtual controller
// output, auxiliary key taps and pointer motion at a fixed rate.
package remap

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/gamepad"
	"github.com/soar/camstick/internal/output"
)

// Loop timing.
const (
	ReloadInterval = 500 * time.Millisecond
	ReadRetryDelay = 20 * time.Millisecond
	minDt          = 1e-6
)

// ConfigSource is the part of the config store the loop reads.
type ConfigSource interface {
	Snapshot() config.Config
	MaybeReloadFromDisk() (bool, error)
}

// Stats are running counters since the loop started.
type Stats struct {
	Ticks         int64 `json:"ticks"`
	ReadFailures  int64 `json:"readFailures"`
	KeyTaps       int64 `json:"keyTaps"`
	PointerPixels int64 `json:"pointerPixels"`
}

// Loop owns the device, the virtual controller and the sink for its whole run. Only
// Telemetry and Stats may be used from other goroutines.
type Loop struct {
	cfg    ConfigSource
	dev    gamepad.Device
	pad    output.Pad
	sink   output.Sink
	clock  clock.Clock
	logger *zap.SugaredLogger

	telemetry chan Telemetry

	ticks         atomic.Int64
	readFailures  atomic.Int64
	keyTaps       atomic.Int64
	pointerPixels atomic.Int64

	started    bool
	last       time.Time
	lastReload time.Time
	reloadErr  string
	failing    bool

	yaw     float64
	out     r2.Vec
	pointer Pointer
	chords  []*Chord
	repeat  *Repeater
	keys    *tapper
	lastTel Telemetry
}

// NewLoop wires a loop. clk may be nil for the wall clock.
func NewLoop(cfg ConfigSource, dev gamepad.Device, pad output.Pad, sink output.Sink, clk clock.Clock, logger *zap.SugaredLogger) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	l := &Loop{
		cfg:       cfg,
		dev:       dev,
		pad:       pad,
		sink:      sink,
		clock:     clk,
		logger:    logger,
		telemetry: make(chan Telemetry, 64),
	}
	l.reset()
	return l
}

// Telemetry returns the channel the loop publishes changed output state on. Sends
// never block; a slow reader misses updates.
func (l *Loop) Telemetry() <-chan Telemetry {
	return l.telemetry
}

// Stats returns the current counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:         l.ticks.Load(),
		ReadFailures:  l.readFailures.Load(),
		KeyTaps:       l.keyTaps.Load(),
		PointerPixels: l.pointerPixels.Load(),
	}
}

// Yaw returns the current heading offset in radians. Loop goroutine only.
func (l *Loop) Yaw() float64 {
	return l.yaw
}

func (l *Loop) reset() {
	l.started = false
	l.lastReload = time.Time{}
	l.failing = false
	l.yaw = 0
	l.out = r2.Vec{}
	l.pointer = Pointer{}
	l.chords = defaultChords()
	l.repeat = NewRepeater()
	l.keys = newTapper(l.sink, l.logger, func() { l.keyTaps.Inc() })
	l.lastTel = Telemetry{}
}

// Run ticks until ctx is done. Errors inside a tick are logged and never returned.
func (l *Loop) Run(ctx context.Context) error {
	l.reset()
	defer l.stop()
	l.logger.Infow("remap loop started", "device", l.dev.Name())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		wait := l.Tick(l.clock.Now())

		timer := l.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// stop releases held keys. Sticks and buttons are left as last committed.
func (l *Loop) stop() {
	l.keys.releaseAll()
	tel := l.lastTel
	tel.Connected = false
	l.publish(tel)
	l.logger.Infow("remap loop stopped", "ticks", l.ticks.Load(), "read_failures", l.readFailures.Load())
}

// Tick runs one iteration at now and returns how long to wait before the next.
func (l *Loop) Tick(now time.Time) time.Duration {
	l.ticks.Inc()
	dt := minDt
	if l.started {
		if d := now.Sub(l.last).Seconds(); d > 0 {
			dt = d
		}
	}
	l.last, l.started = now, true

	if now.Sub(l.lastReload) > ReloadInterval {
		l.reload()
		l.lastReload = now
	}
	l.keys.release(now)

	cfg := l.cfg.Snapshot().Sanitized()

	st, err := l.dev.Read()
	if err != nil {
		l.readFailed(err)
		return ReadRetryDelay
	}
	if l.failing {
		l.failing = false
		l.logger.Infow("device reads recovered", "device", l.dev.Name())
	}

	l.transform(cfg, st, now, dt)
	return time.Second / time.Duration(cfg.PollHz)
}

func (l *Loop) transform(cfg config.Config, st gamepad.State, now time.Time, dt float64) {
	lx, ly := st.Axis(cfg.LeftXAxis), -st.Axis(cfg.LeftYAxis)
	rx, ry := st.Axis(cfg.RightXAxis), -st.Axis(cfg.RightYAxis)
	if cfg.InvertLeftY {
		ly = -ly
	}
	if cfg.InvertRightY {
		ry = -ry
	}

	left := ApplyDeadzone(r2.Vec{X: lx, Y: ly}, cfg.DeadzoneLeft)
	right := ApplyDeadzone(r2.Vec{X: rx, Y: ry}, cfg.DeadzoneRight)

	rotDir := 1.0
	if cfg.InvertRotation {
		rotDir = -1.0
	}
	l.yaw += rotDir * right.X * cfg.RotationSpeedDegPerSec * math.Pi / 180 * dt
	if cfg.WrapYaw {
		l.yaw = WrapAngle(l.yaw)
	}

	l.out = Smooth(l.out, Rotate(left, l.yaw), cfg.OutputSmoothing)

	olx, oly := QuantizeVec(l.out)
	orx, ory := QuantizeVec(right)
	l.pad.SetLeftStick(olx, oly)
	l.pad.SetRightStick(orx, ory)

	r := reading{st: st, m: cfg.Calibration}
	buttons, triggers := dispatch(l.pad, r)
	if err := l.pad.Commit(); err != nil {
		l.logger.Debugw("virtual controller update failed", "error", err)
	}

	for _, c := range l.chords {
		if c.Update(c.satisfied(r)) {
			l.keys.tap(c.Key, now, TapHold)
		}
	}
	modifiers := r.held(devicemap.L1LB) && r.held(devicemap.R1RB)
	if k, fire := l.repeat.Update(now, modifiers, ry); fire {
		l.keys.tap(k, now, ArrowTapHold)
	}

	active := pointerActive(cfg, r)
	if active {
		dx, dy := l.pointer.Advance(cfg, r2.Vec{X: rx, Y: ry}, dt)
		if dx != 0 || dy != 0 {
			if err := l.sink.MovePointer(dx, dy); err != nil {
				l.logger.Debugw("pointer move failed", "error", err)
			}
			l.pointerPixels.Add(int64(abs(dx) + abs(dy)))
		}
	}

	l.publish(Telemetry{
		Connected: true,
		Name:      l.dev.Name(),
		Yaw:       l.yaw,
		Buttons:   buttonState(buttons),
		Dpad:      dpadState(buttons),
		Sticks:    SticksState{Left: stickVector(olx, oly), Right: stickVector(orx, ory)},
		Triggers:  TriggersState{LT: triggers[output.TriggerLeft], RT: triggers[output.TriggerRight]},
		Pointer:   PointerState{Active: active},
	})
}

func (l *Loop) reload() {
	_, err := l.cfg.MaybeReloadFromDisk()
	if err == nil {
		l.reloadErr = ""
		return
	}
	if msg := err.Error(); msg != l.reloadErr {
		l.reloadErr = msg
		l.logger.Warnw("config reload skipped", "error", err)
	}
}

func (l *Loop) readFailed(err error) {
	l.readFailures.Inc()
	if !l.failing {
		l.failing = true
		l.logger.Warnw("device read failed; skipping ticks until it recovers", "device", l.dev.Name(), "error", err)
		return
	}
	l.logger.Debugw("device read failed", "error", err)
}

func (l *Loop) publish(tel Telemetry) {
	if tel == l.lastTel {
		return
	}
	l.lastTel = tel
	select {
	case l.telemetry <- tel:
	default:
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
