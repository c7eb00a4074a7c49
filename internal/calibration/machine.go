// Package calibration teaches the system an unknown controller's layout by prompting the
// operator for each control and watching which raw signal responds.
package calibration

import (
	"fmt"
	"math"

	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/gamepad"
)

// Probe thresholds.
const (
	TriggerDelta   = 0.35
	StickDelta     = 0.45
	TriggerRelease = 0.18
	StickRelease   = 0.20
)

type stepKind int

const (
	stepSettle stepKind = iota
	stepStick
	stepButton
	stepHat
	stepTrigger
)

type step struct {
	kind    stepKind
	control devicemap.Control
	stick   devicemap.StickAxisName
	prompt  string
}

type phase int

const (
	// phaseSettle waits for every button to be up, then samples axis rest values.
	phaseSettle phase = iota
	phaseProbe
	phaseRelease
)

var controlPrompts = map[devicemap.Control]string{
	devicemap.SquareX:    "Press SQUARE (PlayStation) / X (Xbox)",
	devicemap.CrossA:     "Press CROSS (PlayStation) / A (Xbox)",
	devicemap.CircleB:    "Press CIRCLE (PlayStation) / B (Xbox)",
	devicemap.TriangleY:  "Press TRIANGLE (PlayStation) / Y (Xbox)",
	devicemap.DpadUp:     "Press D-PAD UP",
	devicemap.DpadLeft:   "Press D-PAD LEFT",
	devicemap.DpadDown:   "Press D-PAD DOWN",
	devicemap.DpadRight:  "Press D-PAD RIGHT",
	devicemap.L1LB:       "Press L1 (PlayStation) / LB (Xbox)",
	devicemap.L2LT:       "Press and HOLD L2 (PlayStation) / LT (Xbox)",
	devicemap.R1RB:       "Press R1 (PlayStation) / RB (Xbox)",
	devicemap.R2RT:       "Press and HOLD R2 (PlayStation) / RT (Xbox)",
	devicemap.Start:      "Press START (PlayStation) / MENU (Xbox)",
	devicemap.SelectBack: "Press SELECT/SHARE (PlayStation) / BACK/VIEW (Xbox)",
	devicemap.L3:         "Press L3 (left stick click)",
	devicemap.R3:         "Press R3 (right stick click)",
}

// plan returns the probe sequence for a device with numHats hats.
func plan(numHats int) []step {
	steps := []step{
		{kind: stepSettle, prompt: "Make sure no buttons are pressed..."},
		{kind: stepStick, stick: devicemap.LeftX, prompt: "Move LEFT stick fully LEFT and hold"},
		{kind: stepStick, stick: devicemap.LeftY, prompt: "Move LEFT stick fully UP and hold"},
		{kind: stepStick, stick: devicemap.RightX, prompt: "Move RIGHT stick fully LEFT and hold"},
		{kind: stepStick, stick: devicemap.RightY, prompt: "Move RIGHT stick fully UP and hold"},
	}
	for _, c := range devicemap.Controls {
		s := step{kind: stepButton, control: c, prompt: controlPrompts[c]}
		switch {
		case c.IsTrigger():
			s.kind = stepTrigger
		case c.IsDpad() && numHats > 0:
			s.kind = stepHat
		}
		steps = append(steps, s)
	}
	return steps
}

// Machine is the probe state machine. It is driven one device reading at a time by Feed
// and never blocks or reads a clock itself.
type Machine struct {
	steps  []step
	idx    int
	phase  phase
	rest   []float64
	result devicemap.DeviceMap

	// captured signal awaiting release
	axis     int
	axisRest float64
	eps      float64

	say func(string)
}

// NewMachine returns a machine for a device with the given hat count. say receives
// operator prompts; it may be nil.
func NewMachine(numHats int, say func(string)) *Machine {
	mode, hatIndex := devicemap.DpadButtons, -1
	if numHats > 0 {
		mode, hatIndex = devicemap.DpadHat, 0
	}
	if say == nil {
		say = func(string) {}
	}
	m := &Machine{
		steps:  plan(numHats),
		result: devicemap.New(mode, hatIndex),
		say:    say,
	}
	m.say(m.steps[0].prompt)
	return m
}

// Done reports whether every step has been captured.
func (m *Machine) Done() bool {
	return m.idx >= len(m.steps)
}

// Result returns the captured map. It is only complete once Done reports true.
func (m *Machine) Result() devicemap.DeviceMap {
	return m.result.Clone()
}

// Progress returns the number of completed steps and the total.
func (m *Machine) Progress() (int, int) {
	return m.idx, len(m.steps)
}

// Feed advances the machine with one reading. A single reading may complete several
// transitions, e.g. a release immediately followed by the next step's settle.
func (m *Machine) Feed(st gamepad.State) {
	for !m.Done() && m.advance(st) {
	}
}

func (m *Machine) advance(st gamepad.State) bool {
	s := m.steps[m.idx]
	switch m.phase {
	case phaseSettle:
		if st.AnyButton() {
			return false
		}
		m.rest = append(m.rest[:0], st.Axes...)
		if s.kind == stepSettle {
			m.say("OK.")
			m.next()
			return true
		}
		m.phase = phaseProbe
		return true

	case phaseProbe:
		if !m.probe(s, st) {
			return false
		}
		m.phase = phaseRelease
		return true

	case phaseRelease:
		if !m.released(s, st) {
			return false
		}
		m.next()
		return true
	}
	return false
}

func (m *Machine) probe(s step, st gamepad.State) bool {
	switch s.kind {
	case stepButton:
		// lowest index wins when several buttons go down in the same reading
		idx := st.FirstPressed()
		if idx < 0 {
			return false
		}
		m.result.Bindings[s.control] = devicemap.Binding{Type: devicemap.BindButton, Index: idx}
		m.say(fmt.Sprintf("Captured: button index %d", idx))
		m.say("Release...")

	case stepHat:
		h := st.Hat(m.result.HatIndex)
		if h.Centered() {
			return false
		}
		m.result.Bindings[s.control] = devicemap.Binding{
			Type:     devicemap.BindHatDir,
			Index:    -1,
			HatIndex: m.result.HatIndex,
			HX:       h.X,
			HY:       h.Y,
		}
		m.say(fmt.Sprintf("Captured: hat direction %d,%d", h.X, h.Y))

	case stepTrigger:
		i, _ := m.largestDeviation(st, TriggerDelta)
		if i < 0 {
			return false
		}
		rest := m.rest[i]
		mode := devicemap.ClassifyTrigger(rest)
		m.result.Bindings[s.control] = devicemap.Binding{
			Type:  devicemap.BindAxis,
			Index: i,
			Mode:  mode,
			Rest:  rest,
		}
		m.axis, m.axisRest, m.eps = i, rest, TriggerRelease
		m.say(fmt.Sprintf("Captured: axis %d (mode %s)", i, mode))
		m.say("Release trigger...")

	case stepStick:
		i, delta := m.largestDeviation(st, StickDelta)
		if i < 0 {
			return false
		}
		sign := -1
		if delta > 0 {
			sign = 1
		}
		m.result.StickAxes[s.stick] = devicemap.StickAxis{Axis: i, Sign: sign, Rest: m.rest[i]}
		m.axis, m.axisRest, m.eps = i, m.rest[i], StickRelease
		m.say(fmt.Sprintf("Captured: axis %d (sign %d)", i, sign))
		m.say("Release...")
	}
	return true
}

// largestDeviation returns the axis that moved furthest from its rest sample, provided
// it moved at least threshold, and its signed deviation. The lowest index wins ties.
func (m *Machine) largestDeviation(st gamepad.State, threshold float64) (int, float64) {
	best, bestAbs, bestDelta := -1, 0.0, 0.0
	for i, rest := range m.rest {
		d := st.Axis(i) - rest
		if math.Abs(d) > bestAbs {
			best, bestAbs, bestDelta = i, math.Abs(d), d
		}
	}
	if best < 0 || bestAbs < threshold {
		return -1, 0
	}
	return best, bestDelta
}

func (m *Machine) released(s step, st gamepad.State) bool {
	if st.AnyButton() {
		return false
	}
	switch s.kind {
	case stepHat:
		return st.Hat(m.result.HatIndex).Centered()
	case stepTrigger, stepStick:
		return math.Abs(st.Axis(m.axis)-m.axisRest) <= m.eps
	default:
		return true
	}
}

func (m *Machine) next() {
	m.idx++
	m.phase = phaseSettle
	if !m.Done() {
		m.say("")
		m.say(m.steps[m.idx].prompt)
	}
}
