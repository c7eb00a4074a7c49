package gamepad

import "math"

// Hat bit masks as reported by SDL.
const (
	HatUp    uint8 = 0x01
	HatRight uint8 = 0x02
	HatDown  uint8 = 0x04
	HatLeft  uint8 = 0x08
)

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}

// DecodeHat converts an SDL hat bitmask to a direction with up as +Y.
func DecodeHat(bits uint8) Hat {
	var h Hat
	if bits&HatUp != 0 {
		h.Y++
	}
	if bits&HatDown != 0 {
		h.Y--
	}
	if bits&HatRight != 0 {
		h.X++
	}
	if bits&HatLeft != 0 {
		h.X--
	}
	return h
}
