package gamepad

import (
	"github.com/pkg/errors"
)

// ErrDisconnected is returned by Read once the device has gone away.
var ErrDisconnected = errors.New("gamepad disconnected")

// Hat is a discrete hat/POV direction. X is -1 (left), 0 or 1 (right); Y is -1 (down),
// 0 or 1 (up).
type Hat struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Centered reports whether the hat is at rest.
func (h Hat) Centered() bool {
	return h.X == 0 && h.Y == 0
}

// State is one raw reading of a device. Axes are normalized to [-1,1].
type State struct {
	Axes    []float64 `json:"axes"`
	Buttons []bool    `json:"buttons"`
	Hats    []Hat     `json:"hats"`
}

// Axis returns axis i, or 0 if the device has no such axis.
func (s State) Axis(i int) float64 {
	if i < 0 || i >= len(s.Axes) {
		return 0
	}
	return s.Axes[i]
}

// Button returns button i, or false if the device has no such button.
func (s State) Button(i int) bool {
	if i < 0 || i >= len(s.Buttons) {
		return false
	}
	return s.Buttons[i]
}

// Hat returns hat i, or a centered hat if the device has no such hat.
func (s State) Hat(i int) Hat {
	if i < 0 || i >= len(s.Hats) {
		return Hat{}
	}
	return s.Hats[i]
}

// FirstPressed returns the lowest pressed button index, or -1.
func (s State) FirstPressed() int {
	for i, b := range s.Buttons {
		if b {
			return i
		}
	}
	return -1
}

// AnyButton reports whether any button is held.
func (s State) AnyButton() bool {
	return s.FirstPressed() >= 0
}

// Device is the polled read contract of a physical controller.
type Device interface {
	Name() string
	NumAxes() int
	NumButtons() int
	NumHats() int
	// Read returns the current state. A transient failure returns an error and the
	// caller may retry; ErrDisconnected means the device is gone for good.
	Read() (State, error)
	Close() error
}

// Info describes an attached joystick without opening it for reading.
type Info struct {
	Index      int
	Name       string
	VendorID   uint16
	ProductID  uint16
	NumAxes    int
	NumButtons int
	NumHats    int
}
