package testutil

import "github.com/openhvac/switchstat/internal/thermostat"

// FakeThermostatService is a reusable fake implementing ports.ThermostatService.
// Put ONLY what multiple test packages need here.
type FakeThermostatService struct {
	S thermostat.Snapshot

	SetTargetCalled bool
	SetTargetArg    float64
	SetTargetErr    error

	SetPresetCalled bool
	SetPresetArg    thermostat.Preset
	SetPresetErr    error

	SetModeCalled bool
	SetModeArg    thermostat.Mode
	SetModeErr    error

	ObserveTemperatureCalled bool
	ObserveTemperatureArg    float64

	ObserveSwitchStateCalled bool
	ObserveSwitchStateArg    bool
}

func NewFakeThermostatService() *FakeThermostatService {
	return &FakeThermostatService{
		S: thermostat.Snapshot{
			Mode:               thermostat.ModeHeat,
			Preset:             thermostat.PresetNone,
			TargetTemperature:  21,
			CurrentTemperature: 19.5,
			TemperatureKnown:   true,
			SwitchOn:           false,
			MinTemp:            7,
			MaxTemp:            35,
		},
	}
}

func (f *FakeThermostatService) Get() thermostat.Snapshot { return f.S }

func (f *FakeThermostatService) SetTargetTemperature(v float64) error {
	f.SetTargetCalled = true
	f.SetTargetArg = v
	if f.SetTargetErr != nil {
		return f.SetTargetErr
	}
	f.S.TargetTemperature = v
	f.S.Preset = thermostat.PresetNone
	return nil
}

func (f *FakeThermostatService) SetPreset(p thermostat.Preset) error {
	f.SetPresetCalled = true
	f.SetPresetArg = p
	if f.SetPresetErr != nil {
		return f.SetPresetErr
	}
	f.S.Preset = p
	return nil
}

func (f *FakeThermostatService) SetMode(m thermostat.Mode) error {
	f.SetModeCalled = true
	f.SetModeArg = m
	if f.SetModeErr != nil {
		return f.SetModeErr
	}
	f.S.Mode = m
	return nil
}

func (f *FakeThermostatService) ObserveTemperature(v float64) {
	f.ObserveTemperatureCalled = true
	f.ObserveTemperatureArg = v
	f.S.CurrentTemperature = v
	f.S.TemperatureKnown = true
}

func (f *FakeThermostatService) ObserveSwitchState(on bool) {
	f.ObserveSwitchStateCalled = true
	f.ObserveSwitchStateArg = on
	f.S.SwitchOn = on
}
