package devicemap

import (
	"math"

	"github.com/samber/lo"
)

// TriggerMode describes how a trigger axis encodes its travel.
type TriggerMode string

// Trigger encodings, named after the raw range they cover from released to pressed.
const (
	// TriggerAscending rests at -1 and rises to +1.
	TriggerAscending TriggerMode = "minus1_to_1"
	// TriggerDirect rests at 0 and rises to +1.
	TriggerDirect TriggerMode = "zero_to_1"
	// TriggerDescending rests at +1 and falls to -1.
	TriggerDescending TriggerMode = "one_to_minus1"
)

// Rest values beyond these classify a trigger as bipolar.
const (
	bipolarLowRest  = -0.7
	bipolarHighRest = 0.7
)

// ClassifyTrigger picks the encoding of a trigger from its rest value.
func ClassifyTrigger(rest float64) TriggerMode {
	switch {
	case rest <= bipolarLowRest:
		return TriggerAscending
	case rest >= bipolarHighRest:
		return TriggerDescending
	default:
		return TriggerDirect
	}
}

// Travel maps a raw axis reading to [0,1] according to the mode. Unknown modes are
// treated as ascending.
func (m TriggerMode) Travel(v float64) float64 {
	var t float64
	switch m {
	case TriggerDirect:
		t = v
	case TriggerDescending:
		t = (1.0 - v) * 0.5
	default:
		t = (v + 1.0) * 0.5
	}
	return lo.Clamp(t, 0.0, 1.0)
}

// NormalizeTrigger maps a raw axis reading to a 0-255 trigger level.
func NormalizeTrigger(v float64, mode TriggerMode) uint8 {
	return uint8(math.Round(mode.Travel(v) * 255.0))
}
