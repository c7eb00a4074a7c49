package remap

import (
	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/gamepad"
	"github.com/soar/camstick/internal/output"
)

// HeldTriggerLevel is the trigger level above which a trigger counts as held.
const HeldTriggerLevel = 8

type binding struct {
	control devicemap.Control
	button  output.Button
}

// buttonTable maps calibrated controls onto virtual controller buttons.
var buttonTable = [...]binding{
	{devicemap.CrossA, output.ButtonA},
	{devicemap.CircleB, output.ButtonB},
	{devicemap.SquareX, output.ButtonX},
	{devicemap.TriangleY, output.ButtonY},
	{devicemap.L1LB, output.ButtonLB},
	{devicemap.R1RB, output.ButtonRB},
	{devicemap.SelectBack, output.ButtonBack},
	{devicemap.Start, output.ButtonStart},
	{devicemap.L3, output.ButtonLeftThumb},
	{devicemap.R3, output.ButtonRightThumb},
}

var dpadTable = [...]binding{
	{devicemap.DpadUp, output.ButtonDpadUp},
	{devicemap.DpadDown, output.ButtonDpadDown},
	{devicemap.DpadLeft, output.ButtonDpadLeft},
	{devicemap.DpadRight, output.ButtonDpadRight},
}

var triggerTable = []struct {
	control devicemap.Control
	trigger output.Trigger
}{
	{devicemap.L2LT, output.TriggerLeft},
	{devicemap.R2RT, output.TriggerRight},
}

// reading resolves logical controls against one raw device state.
type reading struct {
	st gamepad.State
	m  devicemap.DeviceMap
}

// held reports whether c is down. Axis bindings count as held past HeldTriggerLevel.
func (r reading) held(c devicemap.Control) bool {
	b := r.m.Binding(c)
	switch b.Type {
	case devicemap.BindButton:
		return b.Index >= 0 && r.st.Button(b.Index)
	case devicemap.BindHatDir:
		h := r.st.Hat(b.HatIndex)
		if h.Centered() {
			return false
		}
		return (b.HX == 0 || h.X == b.HX) && (b.HY == 0 || h.Y == b.HY)
	case devicemap.BindAxis:
		return r.trigger(c) > HeldTriggerLevel
	default:
		return false
	}
}

// trigger returns the 0-255 level of an axis-bound control, or 0.
func (r reading) trigger(c devicemap.Control) uint8 {
	b := r.m.Binding(c)
	if b.Type != devicemap.BindAxis || b.Index < 0 {
		return 0
	}
	return devicemap.NormalizeTrigger(r.st.Axis(b.Index), b.Mode)
}

// dpad returns the up, down, left and right directions in dpadTable order.
func (r reading) dpad() [4]bool {
	var out [4]bool
	if r.m.EffectiveDpadMode() == devicemap.DpadHat {
		h := r.st.Hat(r.m.HatIndex)
		out[0], out[1] = h.Y == 1, h.Y == -1
		out[2], out[3] = h.X == -1, h.X == 1
		return out
	}
	for i, d := range dpadTable {
		out[i] = r.held(d.control)
	}
	return out
}

// padButtons is the button state staged on the virtual controller for one tick.
type padButtons [len(buttonTable) + len(dpadTable)]bool

// dispatch stages buttons, dpad and triggers on pad and returns what was staged.
// All four dpad directions are released before the active ones are set again.
func dispatch(pad output.Pad, r reading) (padButtons, [2]uint8) {
	var staged padButtons
	for i, b := range buttonTable {
		staged[i] = r.held(b.control)
		pad.SetButton(b.button, staged[i])
	}
	for _, d := range dpadTable {
		pad.SetButton(d.button, false)
	}
	for i, on := range r.dpad() {
		staged[len(buttonTable)+i] = on
		if on {
			pad.SetButton(dpadTable[i].button, true)
		}
	}
	var levels [2]uint8
	for _, t := range triggerTable {
		levels[t.trigger] = r.trigger(t.control)
		pad.SetTrigger(t.trigger, levels[t.trigger])
	}
	return staged, levels
}
