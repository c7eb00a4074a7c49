// Package output defines the virtual controller and auxiliary key/pointer sinks the remap
// loop drives, with implementations backed by Linux uinput.
package output

// Button is a button of the virtual controller.
type Button int

// Virtual controller buttons.
const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonLB
	ButtonRB
	ButtonBack
	ButtonStart
	ButtonLeftThumb
	ButtonRightThumb
	ButtonDpadUp
	ButtonDpadDown
	ButtonDpadLeft
	ButtonDpadRight
	numButtons
)

var buttonNames = [numButtons]string{
	"a", "b", "x", "y", "lb", "rb", "back", "start",
	"left_thumb", "right_thumb", "dpad_up", "dpad_down", "dpad_left", "dpad_right",
}

func (b Button) String() string {
	if b < 0 || b >= numButtons {
		return "unknown"
	}
	return buttonNames[b]
}

// Buttons lists every virtual controller button.
func Buttons() []Button {
	out := make([]Button, numButtons)
	for i := range out {
		out[i] = Button(i)
	}
	return out
}

// Trigger is an analog trigger of the virtual controller.
type Trigger int

// Virtual controller triggers.
const (
	TriggerLeft Trigger = iota
	TriggerRight
)

// Key is a key of the auxiliary keyboard sink.
type Key int

// Keys the remap loop can emit.
const (
	KeyF8 Key = iota
	KeyF11
	KeyF12
	KeyUp
	KeyDown
)

func (k Key) String() string {
	switch k {
	case KeyF8:
		return "F8"
	case KeyF11:
		return "F11"
	case KeyF12:
		return "F12"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	default:
		return "unknown"
	}
}

// Pad is a virtual controller. Setters stage state; Commit publishes everything staged
// since the previous Commit.
type Pad interface {
	SetLeftStick(x, y int16)
	SetRightStick(x, y int16)
	SetButton(b Button, pressed bool)
	SetTrigger(t Trigger, level uint8)
	Commit() error
	Close() error
}

// Sink receives discrete key events and relative pointer motion.
type Sink interface {
	KeyDown(k Key) error
	KeyUp(k Key) error
	MovePointer(dx, dy int) error
	Close() error
}
