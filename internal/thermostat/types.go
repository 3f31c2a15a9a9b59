package thermostat

import "fmt"

// Mode is an integer enum.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeOff
	ModeHeat
	ModeCool
)

func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeHeat || m == ModeCool
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	default:
		return "unknown"
	}
}

// ParseMode is optional but handy for env vars / CLI.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "off":
		return ModeOff, nil
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	default:
		return ModeUnknown, fmt.Errorf("invalid mode: %q", s)
	}
}

// Preset is an integer enum. The zero value is PresetNone (manual target).
type Preset int

const (
	PresetNone Preset = iota
	PresetAway
	PresetHome
	PresetSleep
	PresetComfort
	PresetActivity
)

func (p Preset) Valid() bool {
	return p >= PresetNone && p <= PresetActivity
}

func (p Preset) String() string {
	switch p {
	case PresetNone:
		return "none"
	case PresetAway:
		return "away"
	case PresetHome:
		return "home"
	case PresetSleep:
		return "sleep"
	case PresetComfort:
		return "comfort"
	case PresetActivity:
		return "activity"
	default:
		return "unknown"
	}
}

// ParsePreset matches preset names case-sensitively.
func ParsePreset(s string) (Preset, error) {
	switch s {
	case "none":
		return PresetNone, nil
	case "away":
		return PresetAway, nil
	case "home":
		return PresetHome, nil
	case "sleep":
		return PresetSleep, nil
	case "comfort":
		return PresetComfort, nil
	case "activity":
		return PresetActivity, nil
	default:
		return PresetNone, fmt.Errorf("invalid preset: %q", s)
	}
}
