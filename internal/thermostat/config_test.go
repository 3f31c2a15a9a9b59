package thermostat

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(cfg *Config) {}, nil},
		{"negative cold tolerance", func(cfg *Config) { cfg.ColdTolerance = -0.5 }, ErrNegativeTolerance},
		{"negative hot tolerance", func(cfg *Config) { cfg.HotTolerance = -0.5 }, ErrNegativeTolerance},
		{"negative min cycle", func(cfg *Config) { cfg.MinCycleDuration = -time.Minute }, ErrNegativeDuration},
		{"negative keep alive", func(cfg *Config) { cfg.KeepAliveInterval = -time.Minute }, ErrNegativeDuration},
		{"zero precision", func(cfg *Config) { cfg.Precision = 0 }, ErrUnsupportedPrecision},
		{"odd precision", func(cfg *Config) { cfg.Precision = 0.25 }, ErrUnsupportedPrecision},
		{"min above max", func(cfg *Config) { cfg.MinTemp = 40 }, ErrInvalidMinMax},
		{"min equals max", func(cfg *Config) { cfg.MinTemp, cfg.MaxTemp = 20, 20 }, ErrInvalidMinMax},
		{"default target out of range", func(cfg *Config) {
			v := 50.0
			cfg.TargetTemp = &v
		}, ErrTargetOutOfRange},
		{"initial mode needs ac", func(cfg *Config) { cfg.InitialMode = ModeCool }, ErrUnsupportedMode},
		{"preset none as key", func(cfg *Config) {
			cfg.PresetTemps = map[Preset]float64{PresetNone: 20}
		}, ErrUnknownPreset},
		{"preset out of enum", func(cfg *Config) {
			cfg.PresetTemps = map[Preset]float64{Preset(42): 20}
		}, ErrUnknownPreset},
		{"preset temperature out of range", func(cfg *Config) {
			cfg.PresetTemps = map[Preset]float64{PresetAway: 50}
		}, ErrTargetOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(tt.mutate)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			assertError(t, err, tt.wantErr)
		})
	}
}

func TestConfigSupportsMode(t *testing.T) {
	heater := newTestConfig()
	ac := newTestConfig(func(cfg *Config) {
		cfg.ACMode = true
		cfg.InitialMode = ModeCool
	})

	tests := []struct {
		name string
		cfg  Config
		m    Mode
		want bool
	}{
		{"heater off", heater, ModeOff, true},
		{"heater heat", heater, ModeHeat, true},
		{"heater cool", heater, ModeCool, false},
		{"ac off", ac, ModeOff, true},
		{"ac heat", ac, ModeHeat, false},
		{"ac cool", ac, ModeCool, true},
		{"unknown", heater, ModeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.SupportsMode(tt.m); got != tt.want {
				t.Fatalf("SupportsMode(%s)=%v want %v", tt.m, got, tt.want)
			}
		})
	}
}

func TestRoundTargetClamps(t *testing.T) {
	cfg := newTestConfig(func(cfg *Config) {
		cfg.Precision = 0.5
	})

	tests := []struct {
		in   float64
		want float64
	}{
		{21.3, 21.5},
		{21.2, 21.0},
		{6.0, 7.0},   // clamped to MinTemp
		{40.0, 35.0}, // clamped to MaxTemp
	}

	for _, tt := range tests {
		if got := cfg.roundTarget(tt.in); got != tt.want {
			t.Fatalf("roundTarget(%v)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultTargetMidpoint(t *testing.T) {
	cfg := newTestConfig(func(cfg *Config) {
		cfg.MinTemp = 10
		cfg.MaxTemp = 31
		cfg.Precision = 1.0
	})
	// midpoint 20.5 rounds half away from zero to the precision step
	if got := cfg.defaultTarget(); got != 21.0 {
		t.Fatalf("defaultTarget()=%v want 21.0", got)
	}
}
