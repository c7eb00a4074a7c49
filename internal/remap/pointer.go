package remap

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soar/camstick/internal/config"
)

// Pointer turns stick deflection into integer pixel motion, carrying the fractional
// remainder between ticks.
type Pointer struct {
	rem r2.Vec
}

// Advance integrates one tick of stick input over dt seconds and returns the whole
// pixels to move; +dy is down on screen.
func (p *Pointer) Advance(cfg config.Config, stick r2.Vec, dt float64) (int, int) {
	v := AccelCurve(ApplyDeadzone(stick, cfg.MouseDeadzone), cfg.MouseAccel)
	if cfg.MouseInvertY {
		v.Y = -v.Y
	}
	step := r2.Vec{X: v.X, Y: -v.Y}
	p.rem = r2.Add(p.rem, r2.Scale(cfg.MouseSpeedPxPerSec*dt, step))

	dx, dy := math.Round(p.rem.X), math.Round(p.rem.Y)
	p.rem = r2.Sub(p.rem, r2.Vec{X: dx, Y: dy})
	return int(dx), int(dy)
}

// Remainder returns the motion not yet emitted.
func (p *Pointer) Remainder() r2.Vec {
	return p.rem
}

// pointerActive applies the activation policy.
func pointerActive(cfg config.Config, r reading) bool {
	if !cfg.MouseEnabled {
		return false
	}
	if !strings.EqualFold(cfg.MouseActivationMode, config.ActivationHold) {
		return true
	}
	return r.held(cfg.HoldControl())
}
