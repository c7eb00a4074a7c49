package remap

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"
)

// ApplyDeadzone zeroes v when its magnitude is below dz and otherwise rescales the
// magnitude from [dz,1] onto [0,1], keeping the direction.
func ApplyDeadzone(v r2.Vec, dz float64) r2.Vec {
	mag := r2.Norm(v)
	if mag < dz || mag == 0 {
		return r2.Vec{}
	}
	scaled := lo.Clamp((mag-dz)/(1-dz), 0, 1)
	return r2.Scale(scaled/mag, v)
}

// Rotate turns v counterclockwise by theta radians about the origin.
func Rotate(v r2.Vec, theta float64) r2.Vec {
	return r2.Rotate(v, theta, r2.Vec{})
}

// WrapAngle normalizes a into (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Quantize maps v from [-1,1] onto the signed 16-bit stick range, saturating outside it.
func Quantize(v float64) int16 {
	return int16(math.Round(lo.Clamp(v, -1, 1) * math.MaxInt16))
}

// QuantizeVec quantizes both components of v.
func QuantizeVec(v r2.Vec) (int16, int16) {
	return Quantize(v.X), Quantize(v.Y)
}

// Smooth is a one-pole filter: prev*s + next*(1-s). s is clamped to [0,0.95]; zero
// passes next through.
func Smooth(prev, next r2.Vec, s float64) r2.Vec {
	s = lo.Clamp(s, 0, 0.95)
	if s == 0 {
		return next
	}
	return r2.Add(r2.Scale(s, prev), r2.Scale(1-s, next))
}

// AccelCurve raises the magnitude of v to exp (at least 0.01), keeping the direction.
func AccelCurve(v r2.Vec, exp float64) r2.Vec {
	mag := r2.Norm(v)
	if mag == 0 {
		return v
	}
	return r2.Scale(math.Pow(mag, max(0.01, exp))/mag, v)
}
