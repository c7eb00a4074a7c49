package calibration

import (
	"testing"

	"go.viam.com/test"

	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/gamepad"
)

// simPad models a six-axis controller: 0/1 left stick, 2 left trigger resting at -1,
// 3/4 right stick, 5 right trigger resting at +1.
type simPad struct {
	hats    int
	buttons int
}

func (p simPad) idle() gamepad.State {
	return gamepad.State{
		Axes:    []float64{0, 0, -1, 0, 0, 1},
		Buttons: make([]bool, p.buttons),
		Hats:    make([]gamepad.Hat, p.hats),
	}
}

func (p simPad) axis(i int, v float64) gamepad.State {
	st := p.idle()
	st.Axes[i] = v
	return st
}

func (p simPad) button(i int) gamepad.State {
	st := p.idle()
	st.Buttons[i] = true
	return st
}

func (p simPad) hat(x, y int) gamepad.State {
	st := p.idle()
	st.Hats[0] = gamepad.Hat{X: x, Y: y}
	return st
}

// session returns the readings of an operator answering every prompt in order, each
// press followed by a full release.
func (p simPad) session() []gamepad.State {
	out := []gamepad.State{p.idle()}
	press := func(st gamepad.State) { out = append(out, st, p.idle()) }

	press(p.axis(0, -1)) // left stick left
	press(p.axis(1, -1)) // left stick up
	press(p.axis(3, -1)) // right stick left
	press(p.axis(4, 1))  // right stick up, on an inverted axis

	press(p.button(2)) // square
	press(p.button(0)) // cross
	press(p.button(1)) // circle
	press(p.button(3)) // triangle
	if p.hats > 0 {
		press(p.hat(0, 1))
		press(p.hat(-1, 0))
		press(p.hat(0, -1))
		press(p.hat(1, 0))
	} else {
		press(p.button(11))
		press(p.button(12))
		press(p.button(13))
		press(p.button(14))
	}
	press(p.button(4))   // l1
	press(p.axis(2, 1))  // l2
	press(p.button(5))   // r1
	press(p.axis(5, -1)) // r2
	press(p.button(7))   // start
	press(p.button(6))   // select
	press(p.button(9))   // l3
	press(p.button(10))  // r3
	return out
}

func TestMachineHatDevice(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	var lines []string
	m := NewMachine(pad.hats, func(s string) { lines = append(lines, s) })
	test.That(t, lines[0], test.ShouldEqual, "Make sure no buttons are pressed...")

	for _, st := range pad.session() {
		m.Feed(st)
	}
	test.That(t, m.Done(), test.ShouldBeTrue)
	done, total := m.Progress()
	test.That(t, done, test.ShouldEqual, total)
	test.That(t, total, test.ShouldEqual, 1+4+len(devicemap.Controls))

	r := m.Result()
	test.That(t, r.DpadMode, test.ShouldEqual, devicemap.DpadHat)
	test.That(t, r.HatIndex, test.ShouldEqual, 0)
	test.That(t, r.Validate(6, pad.buttons, pad.hats), test.ShouldBeNil)

	test.That(t, r.StickAxes[devicemap.LeftX], test.ShouldResemble, devicemap.StickAxis{Axis: 0, Sign: -1})
	test.That(t, r.StickAxes[devicemap.LeftY].Inverted(), test.ShouldBeFalse)
	test.That(t, r.StickAxes[devicemap.RightX].Axis, test.ShouldEqual, 3)
	test.That(t, r.StickAxes[devicemap.RightY].Axis, test.ShouldEqual, 4)
	test.That(t, r.StickAxes[devicemap.RightY].Inverted(), test.ShouldBeTrue)

	test.That(t, r.Bindings[devicemap.SquareX], test.ShouldResemble, devicemap.Binding{Type: devicemap.BindButton, Index: 2})
	test.That(t, r.Bindings[devicemap.CrossA].Index, test.ShouldEqual, 0)
	test.That(t, r.Bindings[devicemap.R3].Index, test.ShouldEqual, 10)

	up := r.Bindings[devicemap.DpadUp]
	test.That(t, up.Type, test.ShouldEqual, devicemap.BindHatDir)
	test.That(t, up.HY, test.ShouldEqual, 1)
	left := r.Bindings[devicemap.DpadLeft]
	test.That(t, left.HX, test.ShouldEqual, -1)
	test.That(t, left.HY, test.ShouldEqual, 0)

	l2 := r.Bindings[devicemap.L2LT]
	test.That(t, l2.Type, test.ShouldEqual, devicemap.BindAxis)
	test.That(t, l2.Index, test.ShouldEqual, 2)
	test.That(t, l2.Mode, test.ShouldEqual, devicemap.TriggerAscending)
	test.That(t, l2.Rest, test.ShouldEqual, -1.0)
	r2 := r.Bindings[devicemap.R2RT]
	test.That(t, r2.Index, test.ShouldEqual, 5)
	test.That(t, r2.Mode, test.ShouldEqual, devicemap.TriggerDescending)

	test.That(t, lines, test.ShouldContain, "Captured: axis 2 (mode minus1_to_1)")
}

func TestMachineButtonDpad(t *testing.T) {
	pad := simPad{hats: 0, buttons: 15}
	m := NewMachine(0, nil)
	for _, st := range pad.session() {
		m.Feed(st)
	}
	test.That(t, m.Done(), test.ShouldBeTrue)

	r := m.Result()
	test.That(t, r.DpadMode, test.ShouldEqual, devicemap.DpadButtons)
	test.That(t, r.Validate(6, pad.buttons, 0), test.ShouldBeNil)
	for i, c := range []devicemap.Control{devicemap.DpadUp, devicemap.DpadLeft, devicemap.DpadDown, devicemap.DpadRight} {
		test.That(t, r.Bindings[c], test.ShouldResemble, devicemap.Binding{Type: devicemap.BindButton, Index: 11 + i})
	}
}

func TestMachineWaitsForSettle(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	m := NewMachine(1, nil)

	m.Feed(pad.button(3))
	done, _ := m.Progress()
	test.That(t, done, test.ShouldEqual, 0)

	m.Feed(pad.idle())
	done, _ = m.Progress()
	test.That(t, done, test.ShouldEqual, 1)
}

func TestMachineWaitsForRelease(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	m := NewMachine(1, nil)
	m.Feed(pad.idle())

	m.Feed(pad.axis(0, -1))
	m.Feed(pad.axis(0, -0.5))
	done, _ := m.Progress()
	test.That(t, done, test.ShouldEqual, 1)

	// within the release band counts as back at rest
	m.Feed(pad.axis(0, -StickRelease))
	done, _ = m.Progress()
	test.That(t, done, test.ShouldEqual, 2)
}

func TestMachineIgnoresSmallDeviation(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	m := NewMachine(1, nil)
	m.Feed(pad.idle())

	m.Feed(pad.axis(0, -0.3))
	m.Feed(pad.idle())
	done, _ := m.Progress()
	test.That(t, done, test.ShouldEqual, 1)
	test.That(t, m.Result().StickAxes, test.ShouldBeEmpty)
}

func TestMachineTiesGoToLowestIndex(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}

	t.Run("axes", func(t *testing.T) {
		m := NewMachine(1, nil)
		m.Feed(pad.idle())
		st := pad.idle()
		st.Axes[1], st.Axes[3] = -1, 1
		m.Feed(st)
		test.That(t, m.Result().StickAxes[devicemap.LeftX].Axis, test.ShouldEqual, 1)
	})

	t.Run("buttons", func(t *testing.T) {
		m := NewMachine(1, nil)
		for _, st := range pad.session()[:9] {
			m.Feed(st)
		}
		st := pad.idle()
		st.Buttons[8], st.Buttons[5] = true, true
		m.Feed(st)
		test.That(t, m.Result().Bindings[devicemap.SquareX].Index, test.ShouldEqual, 5)
	})
}
