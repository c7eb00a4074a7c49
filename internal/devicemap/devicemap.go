// Package devicemap describes how the logical controls of a standard gamepad map onto the
// raw axes, buttons and hat of a physical device. A DeviceMap is produced by calibration
// and consumed by the remap loop.
package devicemap

import (
	"maps"

	"github.com/pkg/errors"
)

// Control names a logical control. The string values are the keys used in the
// persisted document.
type Control string

// Logical controls, in calibration order after the sticks.
const (
	SquareX    Control = "square_x"
	CrossA     Control = "cross_a"
	CircleB    Control = "circle_b"
	TriangleY  Control = "triangle_y"
	DpadUp     Control = "dpad_up"
	DpadLeft   Control = "dpad_left"
	DpadDown   Control = "dpad_down"
	DpadRight  Control = "dpad_right"
	L1LB       Control = "l1_lb"
	L2LT       Control = "l2_lt"
	R1RB       Control = "r1_rb"
	R2RT       Control = "r2_rt"
	Start      Control = "start"
	SelectBack Control = "select_back"
	L3         Control = "l3"
	R3         Control = "r3"
)

// Controls lists every logical control in the order the wizard prompts for them.
var Controls = []Control{
	SquareX, CrossA, CircleB, TriangleY,
	DpadUp, DpadLeft, DpadDown, DpadRight,
	L1LB, L2LT, R1RB, R2RT,
	Start, SelectBack, L3, R3,
}

// IsTrigger reports whether c is captured as an analog axis.
func (c Control) IsTrigger() bool {
	return c == L2LT || c == R2RT
}

// IsDpad reports whether c is one of the four directional-pad controls.
func (c Control) IsDpad() bool {
	switch c {
	case DpadUp, DpadLeft, DpadDown, DpadRight:
		return true
	}
	return false
}

// BindingType is the kind of raw signal a control is bound to.
type BindingType string

// Binding types.
const (
	BindButton BindingType = "button"
	BindAxis   BindingType = "axis"
	BindHatDir BindingType = "hat_dir"
	BindNone   BindingType = "none"
)

// DpadMode selects whether the directional pad is read from a hat or from four buttons.
type DpadMode string

// Directional pad modes.
const (
	DpadHat     DpadMode = "hat"
	DpadButtons DpadMode = "buttons"
)

// Binding ties one logical control to a raw signal.
type Binding struct {
	Type     BindingType `json:"type" yaml:"type" toml:"type"`
	Index    int         `json:"index" yaml:"index" toml:"index"`
	Mode     TriggerMode `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	Rest     float64     `json:"rest" yaml:"rest" toml:"rest"`
	HatIndex int         `json:"hat_index" yaml:"hat_index" toml:"hat_index"`
	HX       int         `json:"hx" yaml:"hx" toml:"hx"`
	HY       int         `json:"hy" yaml:"hy" toml:"hy"`
}

// StickAxisName names one of the four captured stick axes.
type StickAxisName string

// Stick axes captured by calibration.
const (
	LeftX  StickAxisName = "lx"
	LeftY  StickAxisName = "ly"
	RightX StickAxisName = "rx"
	RightY StickAxisName = "ry"
)

// StickAxis records a captured stick axis: the raw index, the sign of the deviation
// observed for the prompt, and the rest value sampled before the prompt.
type StickAxis struct {
	Axis int     `json:"axis" yaml:"axis" toml:"axis"`
	Sign int     `json:"sign" yaml:"sign" toml:"sign"`
	Rest float64 `json:"rest" yaml:"rest" toml:"rest"`
}

// Inverted reports whether the axis increases when the stick moves up. Only meaningful
// for the Y axes, which are captured with an "up" prompt.
func (s StickAxis) Inverted() bool {
	return s.Sign > 0
}

// DeviceMap is the full calibration result for one device.
type DeviceMap struct {
	HatIndex  int                         `json:"hat_index" yaml:"hat_index" toml:"hat_index"`
	DpadMode  DpadMode                    `json:"dpad_mode" yaml:"dpad_mode" toml:"dpad_mode"`
	Bindings  map[Control]Binding         `json:"bindings" yaml:"bindings" toml:"bindings"`
	StickAxes map[StickAxisName]StickAxis `json:"stick_axes" yaml:"stick_axes" toml:"stick_axes"`
}

// New returns an empty map with the given dpad layout.
func New(mode DpadMode, hatIndex int) DeviceMap {
	return DeviceMap{
		HatIndex:  hatIndex,
		DpadMode:  mode,
		Bindings:  make(map[Control]Binding),
		StickAxes: make(map[StickAxisName]StickAxis),
	}
}

// Clone returns a deep copy.
func (m DeviceMap) Clone() DeviceMap {
	out := m
	out.Bindings = maps.Clone(m.Bindings)
	out.StickAxes = maps.Clone(m.StickAxes)
	return out
}

// Binding returns the binding for c, or a BindNone binding if c is unbound.
func (m DeviceMap) Binding(c Control) Binding {
	b, ok := m.Bindings[c]
	if !ok {
		return Binding{Type: BindNone, Index: -1}
	}
	return b
}

// EffectiveDpadMode returns the dpad mode, defaulting to hat when unset.
func (m DeviceMap) EffectiveDpadMode() DpadMode {
	if m.DpadMode == DpadButtons {
		return DpadButtons
	}
	return DpadHat
}

// Validate checks that every captured index lies within the given device counts.
// It is only meaningful against the device the map was captured on.
func (m DeviceMap) Validate(numAxes, numButtons, numHats int) error {
	if m.EffectiveDpadMode() == DpadHat && (m.HatIndex < 0 || m.HatIndex >= numHats) {
		return errors.Errorf("hat index %d out of range (device has %d hats)", m.HatIndex, numHats)
	}
	for c, b := range m.Bindings {
		switch b.Type {
		case BindButton:
			if b.Index < 0 || b.Index >= numButtons {
				return errors.Errorf("%s: button index %d out of range (device has %d buttons)", c, b.Index, numButtons)
			}
		case BindAxis:
			if b.Index < 0 || b.Index >= numAxes {
				return errors.Errorf("%s: axis index %d out of range (device has %d axes)", c, b.Index, numAxes)
			}
		case BindHatDir:
			if b.HatIndex < 0 || b.HatIndex >= numHats {
				return errors.Errorf("%s: hat index %d out of range (device has %d hats)", c, b.HatIndex, numHats)
			}
		}
	}
	for name, s := range m.StickAxes {
		if s.Axis < 0 || s.Axis >= numAxes {
			return errors.Errorf("stick %s: axis index %d out of range (device has %d axes)", name, s.Axis, numAxes)
		}
	}
	return nil
}
