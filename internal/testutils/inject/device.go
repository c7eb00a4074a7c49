// Package inject provides hand-driven fakes of the device and output interfaces.
package inject

import (
	"sync"

	"github.com/soar/camstick/internal/gamepad"
)

// Device is an injected gamepad.Device.
type Device struct {
	DeviceName string
	Axes       int
	ButtonsN   int
	Hats       int
	ReadFunc   func() (gamepad.State, error)
	CloseFunc  func() error
}

// Name returns the injected name.
func (d *Device) Name() string { return d.DeviceName }

// NumAxes returns the injected axis count.
func (d *Device) NumAxes() int { return d.Axes }

// NumButtons returns the injected button count.
func (d *Device) NumButtons() int { return d.ButtonsN }

// NumHats returns the injected hat count.
func (d *Device) NumHats() int { return d.Hats }

// Read calls the injected Read or returns an idle state.
func (d *Device) Read() (gamepad.State, error) {
	if d.ReadFunc == nil {
		return d.Idle(), nil
	}
	return d.ReadFunc()
}

// Close calls the injected Close.
func (d *Device) Close() error {
	if d.CloseFunc == nil {
		return nil
	}
	return d.CloseFunc()
}

// Idle returns a state with every control at rest.
func (d *Device) Idle() gamepad.State {
	return gamepad.State{
		Axes:    make([]float64, d.Axes),
		Buttons: make([]bool, d.ButtonsN),
		Hats:    make([]gamepad.Hat, d.Hats),
	}
}

// Script is a sequence of readings. Each frame is returned Repeat times (at least once)
// before the next; once exhausted, reads fail with gamepad.ErrDisconnected.
type Script struct {
	mu     sync.Mutex
	frames []Frame
	pos    int
	served int
}

// Frame is one scripted reading.
type Frame struct {
	State  gamepad.State
	Err    error
	Repeat int
}

// NewScript returns a script over frames.
func NewScript(frames ...Frame) *Script {
	return &Script{frames: frames}
}

// Append adds frames to the end of the script.
func (s *Script) Append(frames ...Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

// Read returns the next scripted reading.
func (s *Script) Read() (gamepad.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.frames) {
		return gamepad.State{}, gamepad.ErrDisconnected
	}
	f := s.frames[s.pos]
	s.served++
	if s.served >= max(f.Repeat, 1) {
		s.pos++
		s.served = 0
	}
	return f.State, f.Err
}

// Remaining reports how many frames have not been fully served.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.pos
}
