package output

import (
	"math"

	"github.com/bendahl/uinput"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultDevicePath is the uinput character device on Linux.
const DefaultDevicePath = "/dev/uinput"

const (
	padName    = "camstick virtual controller"
	sinkName   = "camstick virtual input"
	padVendor  = 0x045e
	padProduct = 0x028e
)

var uinputButtons = [numButtons]int{
	ButtonA:          uinput.ButtonSouth,
	ButtonB:          uinput.ButtonEast,
	ButtonX:          uinput.ButtonWest,
	ButtonY:          uinput.ButtonNorth,
	ButtonLB:         uinput.ButtonBumperLeft,
	ButtonRB:         uinput.ButtonBumperRight,
	ButtonBack:       uinput.ButtonSelect,
	ButtonStart:      uinput.ButtonStart,
	ButtonLeftThumb:  uinput.ButtonThumbLeft,
	ButtonRightThumb: uinput.ButtonThumbRight,
	ButtonDpadUp:     uinput.ButtonDpadUp,
	ButtonDpadDown:   uinput.ButtonDpadDown,
	ButtonDpadLeft:   uinput.ButtonDpadLeft,
	ButtonDpadRight:  uinput.ButtonDpadRight,
}

// The uinput gamepad has no analog trigger axes, so triggers are sent as the L2/R2
// buttons.
var uinputTriggers = [2]int{
	TriggerLeft:  uinput.ButtonTriggerLeft,
	TriggerRight: uinput.ButtonTriggerRight,
}

// TriggerPressLevel is the trigger level above which the virtual L2/R2 button is down.
const TriggerPressLevel = 8

var uinputKeys = map[Key]int{
	KeyF8:   uinput.KeyF8,
	KeyF11:  uinput.KeyF11,
	KeyF12:  uinput.KeyF12,
	KeyUp:   uinput.KeyUp,
	KeyDown: uinput.KeyDown,
}

// padFrame is the full staged state of the virtual controller.
type padFrame struct {
	lx, ly, rx, ry int16
	buttons        [numButtons]bool
	triggers       [2]uint8
}

// UinputPad is a Pad backed by a uinput gamepad. Commit only writes what changed since
// the last successful Commit.
type UinputPad struct {
	dev       uinput.Gamepad
	staged    padFrame
	committed padFrame
	primed    bool
}

// NewUinputPad creates the virtual controller at path.
func NewUinputPad(path string) (*UinputPad, error) {
	dev, err := uinput.CreateGamepad(path, []byte(padName), padVendor, padProduct)
	if err != nil {
		return nil, errors.Wrap(err, "creating virtual controller")
	}
	return newUinputPad(dev), nil
}

func newUinputPad(dev uinput.Gamepad) *UinputPad {
	return &UinputPad{dev: dev}
}

// SetLeftStick stages the left stick. +Y is up.
func (p *UinputPad) SetLeftStick(x, y int16) { p.staged.lx, p.staged.ly = x, y }

// SetRightStick stages the right stick. +Y is up.
func (p *UinputPad) SetRightStick(x, y int16) { p.staged.rx, p.staged.ry = x, y }

// SetButton stages a button.
func (p *UinputPad) SetButton(b Button, pressed bool) {
	if b >= 0 && b < numButtons {
		p.staged.buttons[b] = pressed
	}
}

// SetTrigger stages a trigger level.
func (p *UinputPad) SetTrigger(t Trigger, level uint8) {
	if t == TriggerLeft || t == TriggerRight {
		p.staged.triggers[t] = level
	}
}

// Commit writes the staged state to the device.
func (p *UinputPad) Commit() error {
	s, c := p.staged, p.committed
	var err error
	if !p.primed || s.lx != c.lx || s.ly != c.ly {
		err = multierr.Append(err, p.dev.LeftStickMove(stickToUinput(s.lx), -stickToUinput(s.ly)))
	}
	if !p.primed || s.rx != c.rx || s.ry != c.ry {
		err = multierr.Append(err, p.dev.RightStickMove(stickToUinput(s.rx), -stickToUinput(s.ry)))
	}
	for i := range s.buttons {
		if p.primed && s.buttons[i] == c.buttons[i] {
			continue
		}
		if s.buttons[i] {
			err = multierr.Append(err, p.dev.ButtonDown(uinputButtons[i]))
		} else {
			err = multierr.Append(err, p.dev.ButtonUp(uinputButtons[i]))
		}
	}
	for i, code := range uinputTriggers {
		down := s.triggers[i] > TriggerPressLevel
		if p.primed && down == (c.triggers[i] > TriggerPressLevel) {
			continue
		}
		if down {
			err = multierr.Append(err, p.dev.ButtonDown(code))
		} else {
			err = multierr.Append(err, p.dev.ButtonUp(code))
		}
	}
	if err != nil {
		return errors.Wrap(err, "committing virtual controller state")
	}
	p.committed = s
	p.primed = true
	return nil
}

// Close destroys the virtual controller.
func (p *UinputPad) Close() error {
	return p.dev.Close()
}

// stickToUinput maps a signed 16-bit stick value to uinput's [-1,1] float range.
func stickToUinput(v int16) float32 {
	return float32(math.Max(-1, float64(v)/math.MaxInt16))
}

// UinputSink is a Sink backed by a uinput keyboard and mouse.
type UinputSink struct {
	keyboard uinput.Keyboard
	mouse    uinput.Mouse
}

// NewUinputSink creates the virtual keyboard and mouse at path.
func NewUinputSink(path string) (*UinputSink, error) {
	kb, err := uinput.CreateKeyboard(path, []byte(sinkName+" keyboard"))
	if err != nil {
		return nil, errors.Wrap(err, "creating virtual keyboard")
	}
	mouse, err := uinput.CreateMouse(path, []byte(sinkName+" mouse"))
	if err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "creating virtual mouse"), kb.Close())
	}
	return &UinputSink{keyboard: kb, mouse: mouse}, nil
}

// KeyDown presses k.
func (s *UinputSink) KeyDown(k Key) error {
	code, ok := uinputKeys[k]
	if !ok {
		return errors.Errorf("unsupported key %d", k)
	}
	return s.keyboard.KeyDown(code)
}

// KeyUp releases k.
func (s *UinputSink) KeyUp(k Key) error {
	code, ok := uinputKeys[k]
	if !ok {
		return errors.Errorf("unsupported key %d", k)
	}
	return s.keyboard.KeyUp(code)
}

// MovePointer moves the pointer by a relative amount; +dy is down.
func (s *UinputSink) MovePointer(dx, dy int) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	return s.mouse.Move(int32(dx), int32(dy))
}

// Close destroys both devices.
func (s *UinputSink) Close() error {
	return multierr.Combine(s.keyboard.Close(), s.mouse.Close())
}
