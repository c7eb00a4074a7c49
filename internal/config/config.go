// Package config holds the live-tunable parameters and the calibration result, the
// document they persist to, and the store that shares them between the remap loop and
// the settings surface.
package config

import (
	"math"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/soar/camstick/internal/devicemap"
)

// Pointer activation modes.
const (
	ActivationAlways = "always"
	ActivationHold   = "hold"
)

// Limits enforced on a snapshot before the loop uses it.
const (
	MinPollHz       = 30
	MaxPollHz       = 1000
	MaxSmoothing    = 0.95
	MinPointerAccel = 0.01
)

// HoldKeys lists the controls that may gate pointer emission in hold mode.
var HoldKeys = []devicemap.Control{
	devicemap.R3, devicemap.L3, devicemap.L1LB, devicemap.R1RB,
	devicemap.L2LT, devicemap.R2RT, devicemap.Start, devicemap.SelectBack,
}

// Config is the full persisted document.
type Config struct {
	RotationSpeedDegPerSec float64 `json:"rotation_speed_deg_per_sec" yaml:"rotation_speed_deg_per_sec" toml:"rotation_speed_deg_per_sec"`
	InvertRotation         bool    `json:"invert_rotation" yaml:"invert_rotation" toml:"invert_rotation"`
	DeadzoneLeft           float64 `json:"deadzone_left" yaml:"deadzone_left" toml:"deadzone_left"`
	DeadzoneRight          float64 `json:"deadzone_right" yaml:"deadzone_right" toml:"deadzone_right"`
	WrapYaw                bool    `json:"wrap_yaw" yaml:"wrap_yaw" toml:"wrap_yaw"`
	InvertLeftY            bool    `json:"invert_left_y" yaml:"invert_left_y" toml:"invert_left_y"`
	InvertRightY           bool    `json:"invert_right_y" yaml:"invert_right_y" toml:"invert_right_y"`
	OutputSmoothing        float64 `json:"output_smoothing" yaml:"output_smoothing" toml:"output_smoothing"`

	JoystickIndex int `json:"joystick_index" yaml:"joystick_index" toml:"joystick_index"`
	LeftXAxis     int `json:"left_x_axis" yaml:"left_x_axis" toml:"left_x_axis"`
	LeftYAxis     int `json:"left_y_axis" yaml:"left_y_axis" toml:"left_y_axis"`
	RightXAxis    int `json:"right_x_axis" yaml:"right_x_axis" toml:"right_x_axis"`
	RightYAxis    int `json:"right_y_axis" yaml:"right_y_axis" toml:"right_y_axis"`
	PollHz        int `json:"poll_hz" yaml:"poll_hz" toml:"poll_hz"`

	MouseEnabled        bool    `json:"mouse_enabled" yaml:"mouse_enabled" toml:"mouse_enabled"`
	MouseSpeedPxPerSec  float64 `json:"mouse_speed_px_per_sec" yaml:"mouse_speed_px_per_sec" toml:"mouse_speed_px_per_sec"`
	MouseDeadzone       float64 `json:"mouse_deadzone" yaml:"mouse_deadzone" toml:"mouse_deadzone"`
	MouseAccel          float64 `json:"mouse_accel" yaml:"mouse_accel" toml:"mouse_accel"`
	MouseInvertY        bool    `json:"mouse_invert_y" yaml:"mouse_invert_y" toml:"mouse_invert_y"`
	MouseActivationMode string  `json:"mouse_activation_mode" yaml:"mouse_activation_mode" toml:"mouse_activation_mode"`
	MouseHoldKey        string  `json:"mouse_hold_key" yaml:"mouse_hold_key" toml:"mouse_hold_key"`

	Calibrated  bool                `json:"calibrated" yaml:"calibrated" toml:"calibrated"`
	Calibration devicemap.DeviceMap `json:"calibration" yaml:"calibration" toml:"-"`
}

// Default returns the configuration used when no document exists.
func Default() Config {
	return Config{
		RotationSpeedDegPerSec: 180.0,
		InvertRotation:         true,
		DeadzoneLeft:           0.12,
		DeadzoneRight:          0.10,
		WrapYaw:                true,
		InvertLeftY:            false,
		InvertRightY:           false,
		OutputSmoothing:        0.0,

		JoystickIndex: 0,
		LeftXAxis:     0,
		LeftYAxis:     1,
		RightXAxis:    2,
		RightYAxis:    3,
		PollHz:        240,

		MouseEnabled:        true,
		MouseSpeedPxPerSec:  1200.0,
		MouseDeadzone:       0.18,
		MouseAccel:          1.35,
		MouseInvertY:        false,
		MouseActivationMode: ActivationAlways,
		MouseHoldKey:        string(devicemap.R3),

		Calibrated:  false,
		Calibration: devicemap.New(devicemap.DpadHat, 0),
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Calibration = c.Calibration.Clone()
	return out
}

// Sanitized returns a copy with the numeric ranges the loop depends on enforced.
func (c Config) Sanitized() Config {
	out := c.Clone()
	out.DeadzoneLeft = clampDeadzone(out.DeadzoneLeft)
	out.DeadzoneRight = clampDeadzone(out.DeadzoneRight)
	out.MouseDeadzone = clampDeadzone(out.MouseDeadzone)
	out.OutputSmoothing = lo.Clamp(out.OutputSmoothing, 0, MaxSmoothing)
	out.PollHz = lo.Clamp(out.PollHz, MinPollHz, MaxPollHz)
	out.MouseAccel = max(out.MouseAccel, MinPointerAccel)
	if !strings.EqualFold(out.MouseActivationMode, ActivationHold) {
		out.MouseActivationMode = ActivationAlways
	} else {
		out.MouseActivationMode = ActivationHold
	}
	return out
}

// HoldControl returns the control named by MouseHoldKey.
func (c Config) HoldControl() devicemap.Control {
	return devicemap.Control(c.MouseHoldKey)
}

func clampDeadzone(v float64) float64 {
	return lo.Clamp(v, 0, math.Nextafter(1, 0))
}

// validateField rejects values a field can never meaningfully hold. Values that are
// merely out of range for the loop are left to Sanitized.
func (c Config) validateField(key string) error {
	finite := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("%s must be finite", name)
		}
		return nil
	}
	unit := func(name string, v float64) error {
		if err := finite(name, v); err != nil {
			return err
		}
		if v < 0 || v >= 1 {
			return errors.Errorf("%s must be in [0,1), got %v", name, v)
		}
		return nil
	}
	nonNegative := func(name string, v int) error {
		if v < 0 {
			return errors.Errorf("%s must not be negative, got %d", name, v)
		}
		return nil
	}

	switch key {
	case "rotation_speed_deg_per_sec":
		return finite(key, c.RotationSpeedDegPerSec)
	case "deadzone_left":
		return unit(key, c.DeadzoneLeft)
	case "deadzone_right":
		return unit(key, c.DeadzoneRight)
	case "mouse_deadzone":
		return unit(key, c.MouseDeadzone)
	case "output_smoothing":
		return finite(key, c.OutputSmoothing)
	case "mouse_accel":
		return finite(key, c.MouseAccel)
	case "mouse_speed_px_per_sec":
		if err := finite(key, c.MouseSpeedPxPerSec); err != nil {
			return err
		}
		if c.MouseSpeedPxPerSec < 0 {
			return errors.Errorf("%s must not be negative", key)
		}
	case "joystick_index":
		return nonNegative(key, c.JoystickIndex)
	case "left_x_axis":
		return nonNegative(key, c.LeftXAxis)
	case "left_y_axis":
		return nonNegative(key, c.LeftYAxis)
	case "right_x_axis":
		return nonNegative(key, c.RightXAxis)
	case "right_y_axis":
		return nonNegative(key, c.RightYAxis)
	case "mouse_activation_mode":
		m := strings.ToLower(c.MouseActivationMode)
		if m != ActivationAlways && m != ActivationHold {
			return errors.Errorf("%s must be %q or %q, got %q", key, ActivationAlways, ActivationHold, c.MouseActivationMode)
		}
	case "mouse_hold_key":
		if !lo.Contains(HoldKeys, c.HoldControl()) {
			return errors.Errorf("%s %q is not a supported hold key", key, c.MouseHoldKey)
		}
	}
	return nil
}

// fieldIndex maps each document key to its struct field index.
var fieldIndex = func() map[string]int {
	t := reflect.TypeOf(Config{})
	idx := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		idx[name] = i
	}
	return idx
}()

// Keys returns every document key.
func Keys() []string {
	return lo.Keys(fieldIndex)
}
