package remap

import (
	"math"

	"github.com/soar/camstick/internal/output"
)

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ButtonState struct {
	A          bool `json:"a"`
	B          bool `json:"b"`
	X          bool `json:"x"`
	Y          bool `json:"y"`
	LB         bool `json:"lb"`
	RB         bool `json:"rb"`
	Back       bool `json:"back"`
	Start      bool `json:"start"`
	LeftThumb  bool `json:"leftThumb"`
	RightThumb bool `json:"rightThumb"`
}

type DpadState struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type SticksState struct {
	Left  Vector `json:"left"`
	Right Vector `json:"right"`
}

type TriggersState struct {
	LT uint8 `json:"lt"`
	RT uint8 `json:"rt"`
}

type PointerState struct {
	Active bool `json:"active"`
}

// Telemetry is what the loop last sent to the virtual controller, for display.
type Telemetry struct {
	Connected bool          `json:"connected"`
	Name      string        `json:"name"`
	Yaw       float64       `json:"yaw"`
	Buttons   ButtonState   `json:"buttons"`
	Dpad      DpadState     `json:"dpad"`
	Sticks    SticksState   `json:"sticks"`
	Triggers  TriggersState `json:"triggers"`
	Pointer   PointerState  `json:"pointer"`
}

type DeltaChanges struct {
	Connected *bool          `json:"connected,omitempty"`
	Name      *string        `json:"name,omitempty"`
	Yaw       *float64       `json:"yaw,omitempty"`
	Buttons   *ButtonState   `json:"buttons,omitempty"`
	Dpad      *DpadState     `json:"dpad,omitempty"`
	Sticks    *SticksState   `json:"sticks,omitempty"`
	Triggers  *TriggersState `json:"triggers,omitempty"`
	Pointer   *PointerState  `json:"pointer,omitempty"`
}

func (d *DeltaChanges) IsEmpty() bool {
	return d.Connected == nil &&
		d.Name == nil &&
		d.Yaw == nil &&
		d.Buttons == nil &&
		d.Dpad == nil &&
		d.Sticks == nil &&
		d.Triggers == nil &&
		d.Pointer == nil
}

const (
	analogThreshold = 0.01
	yawThreshold    = 0.005
)

func floatEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func vectorEqual(a, b Vector) bool {
	return floatEqual(a.X, b.X, analogThreshold) && floatEqual(a.Y, b.Y, analogThreshold)
}

// ComputeDelta returns the fields of next that differ visibly from prev.
func ComputeDelta(prev, next Telemetry) *DeltaChanges {
	d := &DeltaChanges{}

	if prev.Connected != next.Connected {
		d.Connected = &next.Connected
	}
	if prev.Name != next.Name {
		d.Name = &next.Name
	}
	if !floatEqual(prev.Yaw, next.Yaw, yawThreshold) {
		d.Yaw = &next.Yaw
	}
	if prev.Buttons != next.Buttons {
		d.Buttons = &next.Buttons
	}
	if prev.Dpad != next.Dpad {
		d.Dpad = &next.Dpad
	}
	if !vectorEqual(prev.Sticks.Left, next.Sticks.Left) || !vectorEqual(prev.Sticks.Right, next.Sticks.Right) {
		d.Sticks = &next.Sticks
	}
	if prev.Triggers != next.Triggers {
		d.Triggers = &next.Triggers
	}
	if prev.Pointer != next.Pointer {
		d.Pointer = &next.Pointer
	}
	return d
}

func stickVector(x, y int16) Vector {
	return Vector{X: float64(x) / math.MaxInt16, Y: float64(y) / math.MaxInt16}
}

func buttonState(staged padButtons) ButtonState {
	at := func(b output.Button) bool {
		for i, e := range buttonTable {
			if e.button == b {
				return staged[i]
			}
		}
		return false
	}
	return ButtonState{
		A:          at(output.ButtonA),
		B:          at(output.ButtonB),
		X:          at(output.ButtonX),
		Y:          at(output.ButtonY),
		LB:         at(output.ButtonLB),
		RB:         at(output.ButtonRB),
		Back:       at(output.ButtonBack),
		Start:      at(output.ButtonStart),
		LeftThumb:  at(output.ButtonLeftThumb),
		RightThumb: at(output.ButtonRightThumb),
	}
}

func dpadState(staged padButtons) DpadState {
	d := staged[len(buttonTable):]
	return DpadState{Up: d[0], Down: d[1], Left: d[2], Right: d[3]}
}
