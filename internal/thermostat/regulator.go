package thermostat

// regulator computes the desired switch state from a temperature reading,
// applying the hysteresis dead-band around the target.
type regulator struct {
	coldTolerance float64
	hotTolerance  float64
}

// desired reports the next switch state for the given active mode. hold is
// the last commanded state, returned unchanged while the reading sits inside
// the dead-band.
func (r regulator) desired(mode Mode, current, target float64, hold bool) bool {
	switch mode {
	case ModeHeat:
		if current <= target-r.coldTolerance {
			return true
		}
		if current >= target+r.hotTolerance {
			return false
		}
	case ModeCool:
		if current >= target+r.hotTolerance {
			return true
		}
		if current <= target-r.coldTolerance {
			return false
		}
	}
	return hold
}
