package thermostat

import "errors"

var (
	ErrInvalidMode          = errors.New("invalid mode")
	ErrUnsupportedMode      = errors.New("mode not supported by this configuration")
	ErrUnknownPreset        = errors.New("unknown preset")
	ErrPresetNotConfigured  = errors.New("preset has no configured temperature")
	ErrTargetOutOfRange     = errors.New("target temperature out of range")
	ErrInvalidMinMax        = errors.New("invalid min/max temperatures")
	ErrNegativeTolerance    = errors.New("tolerances must be non-negative")
	ErrNegativeDuration     = errors.New("cycle and keep-alive durations must be non-negative")
	ErrUnsupportedPrecision = errors.New("unsupported target temperature precision")
	ErrNilActuator          = errors.New("switch actuator is required")
)
