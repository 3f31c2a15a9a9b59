package device

import "github.com/openhvac/switchstat/internal/thermostat"

// Device binds a stable identity to the controller that owns its switch.
type Device struct {
	ID   string
	Ctrl *thermostat.Controller
}

func New(id string, c *thermostat.Controller) *Device {
	return &Device{ID: id, Ctrl: c}
}
