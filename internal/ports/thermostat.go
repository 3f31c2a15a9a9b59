package ports

import "github.com/openhvac/switchstat/internal/thermostat"

// ThermostatService is the control-plane port used by controllers (HTTP/MQTT/etc).
type ThermostatService interface {
	Get() thermostat.Snapshot
	SetTargetTemperature(float64) error
	SetPreset(thermostat.Preset) error
	SetMode(thermostat.Mode) error
	ObserveTemperature(float64)
	ObserveSwitchState(bool)
}
