// Package sdlreader reads physical joysticks through the SDL3 joystick API.
//
// SDL requires every call to come from the thread that initialized it, so Init, Open,
// Read and Close must all run on one goroutine that has called runtime.LockOSThread.
package sdlreader

import (
	"github.com/jupiterrider/purego-sdl3/sdl"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/soar/camstick/internal/gamepad"
)

// Init starts the SDL joystick subsystem.
func Init() error {
	if !sdl.Init(sdl.InitJoystick) {
		return errors.Errorf("SDL init failed: %s", sdl.GetError())
	}
	return nil
}

// Quit shuts SDL down. All readers must be closed first.
func Quit() {
	sdl.Quit()
}

// Enumerate lists attached joysticks in SDL order. Each one is opened briefly to read
// its capabilities.
func Enumerate() []gamepad.Info {
	pump()
	ids := sdl.GetJoysticks()
	infos := make([]gamepad.Info, 0, len(ids))
	for i, id := range ids {
		js := sdl.OpenJoystick(id)
		if js == nil {
			infos = append(infos, gamepad.Info{Index: i, Name: "(unavailable)"})
			continue
		}
		infos = append(infos, gamepad.Info{
			Index:      i,
			Name:       sdl.GetJoystickName(js),
			VendorID:   sdl.GetJoystickVendor(js),
			ProductID:  sdl.GetJoystickProduct(js),
			NumAxes:    int(sdl.GetNumJoystickAxes(js)),
			NumButtons: int(sdl.GetNumJoystickButtons(js)),
			NumHats:    int(sdl.GetNumJoystickHats(js)),
		})
		sdl.CloseJoystick(js)
	}
	return infos
}

// Reader is a gamepad.Device backed by one SDL joystick.
type Reader struct {
	joystick   *sdl.Joystick
	id         sdl.JoystickID
	name       string
	numAxes    int
	numButtons int
	numHats    int
	removed    bool
	logger     *zap.SugaredLogger
}

var _ gamepad.Device = (*Reader)(nil)

// Open opens the joystick at position index of the attached-device list.
func Open(index int, logger *zap.SugaredLogger) (*Reader, error) {
	pump()
	ids := sdl.GetJoysticks()
	if len(ids) == 0 {
		return nil, errors.New("no joystick detected")
	}
	if index < 0 || index >= len(ids) {
		return nil, errors.Errorf("joystick index %d out of range (%d attached)", index, len(ids))
	}

	js := sdl.OpenJoystick(ids[index])
	if js == nil {
		return nil, errors.Errorf("failed to open joystick %d: %s", index, sdl.GetError())
	}

	r := &Reader{
		joystick:   js,
		id:         sdl.GetJoystickID(js),
		name:       sdl.GetJoystickName(js),
		numAxes:    int(sdl.GetNumJoystickAxes(js)),
		numButtons: int(sdl.GetNumJoystickButtons(js)),
		numHats:    int(sdl.GetNumJoystickHats(js)),
		logger:     logger,
	}
	logger.Infow("joystick opened",
		"name", r.name,
		"vid", sdl.GetJoystickVendor(js),
		"pid", sdl.GetJoystickProduct(js),
		"axes", r.numAxes,
		"buttons", r.numButtons,
		"hats", r.numHats)
	return r, nil
}

// Name returns the device name reported by SDL.
func (r *Reader) Name() string { return r.name }

// NumAxes returns the number of axes.
func (r *Reader) NumAxes() int { return r.numAxes }

// NumButtons returns the number of buttons.
func (r *Reader) NumButtons() int { return r.numButtons }

// NumHats returns the number of hats.
func (r *Reader) NumHats() int { return r.numHats }

// Read pumps pending SDL events and samples every axis, button and hat.
func (r *Reader) Read() (gamepad.State, error) {
	r.processEvents()
	if r.removed || r.joystick == nil || !sdl.JoystickConnected(r.joystick) {
		return gamepad.State{}, gamepad.ErrDisconnected
	}

	st := gamepad.State{
		Axes:    make([]float64, r.numAxes),
		Buttons: make([]bool, r.numButtons),
		Hats:    make([]gamepad.Hat, r.numHats),
	}
	for i := range st.Axes {
		st.Axes[i] = gamepad.NormalizeAxis(sdl.GetJoystickAxis(r.joystick, int32(i)))
	}
	for i := range st.Buttons {
		st.Buttons[i] = sdl.GetJoystickButton(r.joystick, int32(i))
	}
	for i := range st.Hats {
		st.Hats[i] = gamepad.DecodeHat(sdl.GetJoystickHat(r.joystick, int32(i)))
	}
	return st, nil
}

// Close releases the joystick.
func (r *Reader) Close() error {
	if r.joystick != nil {
		sdl.CloseJoystick(r.joystick)
		r.joystick = nil
		r.logger.Infow("joystick closed", "name", r.name)
	}
	return nil
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		if event.Type() == sdl.EventJoystickRemoved && event.JDevice().Which == r.id && !r.removed {
			r.removed = true
			r.logger.Warnw("joystick disconnected", "name", r.name)
		}
	}
}

// pump drains the event queue so the joystick list and states are current.
func pump() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
	}
}
