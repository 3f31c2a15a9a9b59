package thermostat

import (
	"fmt"
	"math"
	"time"
)

// Config is immutable controller configuration, validated once at construction.
type Config struct {
	// Hysteresis band around the target temperature.
	ColdTolerance float64
	HotTolerance  float64

	// ACMode selects actuation polarity: false drives a heater (active mode
	// is heat), true drives an air conditioner (active mode is cool).
	ACMode bool

	// MinCycleDuration, when positive, suppresses switch transitions more
	// frequent than this. Mode changes are exempt.
	MinCycleDuration time.Duration

	// KeepAliveInterval, when positive, re-asserts the last directive on a
	// timer to correct actuator drift.
	KeepAliveInterval time.Duration

	// Precision is the target temperature rounding step: 0.1, 0.5 or 1.0.
	Precision float64

	MinTemp float64
	MaxTemp float64

	// TargetTemp is the default target when no persisted state exists.
	// Nil means the midpoint of [MinTemp, MaxTemp].
	TargetTemp *float64

	// InitialMode, when not ModeUnknown, overrides any restored mode.
	InitialMode Mode

	// PresetTemps maps configured presets to their target temperatures.
	// PresetNone must not appear as a key.
	PresetTemps map[Preset]float64
}

func (cfg *Config) Validate() error {
	if cfg.ColdTolerance < 0 || cfg.HotTolerance < 0 {
		return ErrNegativeTolerance
	}
	if cfg.MinCycleDuration < 0 || cfg.KeepAliveInterval < 0 {
		return ErrNegativeDuration
	}
	if cfg.Precision != 0.1 && cfg.Precision != 0.5 && cfg.Precision != 1.0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedPrecision, cfg.Precision)
	}
	if cfg.MinTemp >= cfg.MaxTemp {
		return ErrInvalidMinMax
	}
	if cfg.TargetTemp != nil && (*cfg.TargetTemp < cfg.MinTemp || *cfg.TargetTemp > cfg.MaxTemp) {
		return fmt.Errorf("%w: default target %v", ErrTargetOutOfRange, *cfg.TargetTemp)
	}
	if cfg.InitialMode != ModeUnknown && !cfg.SupportsMode(cfg.InitialMode) {
		return fmt.Errorf("%w: initial mode %s", ErrUnsupportedMode, cfg.InitialMode)
	}
	for p, temp := range cfg.PresetTemps {
		if !p.Valid() || p == PresetNone {
			return fmt.Errorf("%w: preset %d", ErrUnknownPreset, p)
		}
		if temp < cfg.MinTemp || temp > cfg.MaxTemp {
			return fmt.Errorf("%w: preset %s temperature %v", ErrTargetOutOfRange, p, temp)
		}
	}
	return nil
}

// SupportsMode reports whether m is a legal operating mode: off is always
// legal, heat requires a heater configuration, cool requires ACMode.
func (cfg *Config) SupportsMode(m Mode) bool {
	switch m {
	case ModeOff:
		return true
	case ModeHeat:
		return !cfg.ACMode
	case ModeCool:
		return cfg.ACMode
	default:
		return false
	}
}

// roundTarget snaps v to the configured precision and clamps it into
// [MinTemp, MaxTemp].
func (cfg *Config) roundTarget(v float64) float64 {
	r := math.Round(v/cfg.Precision) * cfg.Precision
	return math.Min(math.Max(r, cfg.MinTemp), cfg.MaxTemp)
}

// defaultTarget is the target adopted when no persisted state exists.
func (cfg *Config) defaultTarget() float64 {
	if cfg.TargetTemp != nil {
		return cfg.roundTarget(*cfg.TargetTemp)
	}
	return cfg.roundTarget((cfg.MinTemp + cfg.MaxTemp) / 2)
}
