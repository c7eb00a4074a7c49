package gamepad

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestStateAccessorsOutOfRange(t *testing.T) {
	s := State{
		Axes:    []float64{0.5},
		Buttons: []bool{false, true},
		Hats:    []Hat{{X: 1}},
	}
	test.That(t, s.Axis(0), test.ShouldEqual, 0.5)
	test.That(t, s.Axis(3), test.ShouldEqual, 0.0)
	test.That(t, s.Axis(-1), test.ShouldEqual, 0.0)
	test.That(t, s.Button(1), test.ShouldBeTrue)
	test.That(t, s.Button(9), test.ShouldBeFalse)
	test.That(t, s.Hat(0), test.ShouldResemble, Hat{X: 1})
	test.That(t, s.Hat(1).Centered(), test.ShouldBeTrue)
	test.That(t, s.FirstPressed(), test.ShouldEqual, 1)
	test.That(t, s.AnyButton(), test.ShouldBeTrue)
	test.That(t, State{}.AnyButton(), test.ShouldBeFalse)
}

func TestNormalizeAxis(t *testing.T) {
	test.That(t, NormalizeAxis(0), test.ShouldEqual, 0.0)
	test.That(t, NormalizeAxis(math.MaxInt16), test.ShouldEqual, 1.0)
	test.That(t, NormalizeAxis(math.MinInt16), test.ShouldEqual, -1.0)
	test.That(t, NormalizeAxis(16384), test.ShouldAlmostEqual, 0.5, 1e-4)
}

func TestDecodeHat(t *testing.T) {
	test.That(t, DecodeHat(0), test.ShouldResemble, Hat{})
	test.That(t, DecodeHat(HatUp), test.ShouldResemble, Hat{Y: 1})
	test.That(t, DecodeHat(HatDown), test.ShouldResemble, Hat{Y: -1})
	test.That(t, DecodeHat(HatLeft), test.ShouldResemble, Hat{X: -1})
	test.That(t, DecodeHat(HatRight|HatUp), test.ShouldResemble, Hat{X: 1, Y: 1})
	test.That(t, DecodeHat(HatLeft|HatDown), test.ShouldResemble, Hat{X: -1, Y: -1})
}
