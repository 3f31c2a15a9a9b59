package app

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/openhvac/switchstat/internal/thermostat"
)

const envPrefix = "SWITCHSTAT_"

type Config struct {
	DeviceID string `koanf:"device_id"`

	// StateFile is where the restorable state lives. Empty disables persistence.
	StateFile string `koanf:"state_file"`

	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt"`
		Modbus ModbusConfig `koanf:"modbus"`
	} `koanf:"controllers"`

	Thermostat ThermostatConfig `koanf:"thermostat"`
}

type ThermostatConfig struct {
	ACMode           bool          `koanf:"ac_mode"`
	ColdTolerance    float64       `koanf:"cold_tolerance"`
	HotTolerance     float64       `koanf:"hot_tolerance"`
	MinCycleDuration time.Duration `koanf:"min_cycle_duration"`
	KeepAlive        time.Duration `koanf:"keep_alive"`
	Precision        float64       `koanf:"precision"`
	MinTemp          float64       `koanf:"min_temp"`
	MaxTemp          float64       `koanf:"max_temp"`
	TargetTemp       *float64      `koanf:"target_temp"`
	InitialMode      string        `koanf:"initial_hvac_mode"` // "off" | "heat" | "cool", empty = restore
	// Presets maps preset names (away, home, sleep, comfort, activity) to
	// target temperatures.
	Presets map[string]float64 `koanf:"presets"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled   bool   `koanf:"enabled"`
	BrokerURL string `koanf:"broker_url"`
	ClientID  string `koanf:"client_id"`
	BaseTopic string `koanf:"base_topic"`

	SensorTopic        string `koanf:"sensor_topic"`
	SwitchStateTopic   string `koanf:"switch_state_topic"`
	SwitchCommandTopic string `koanf:"switch_command_topic"`
	PayloadOn          string `koanf:"payload_on"`
	PayloadOff         string `koanf:"payload_off"`

	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Addr         string        `koanf:"addr"`
	UnitID       byte          `koanf:"unit_id"`
	SyncInterval time.Duration `koanf:"sync_interval"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.StateFile = "switchstat-state.yaml"
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.Modbus.UnitID = 1
	cfg.Thermostat = ThermostatConfig{
		ColdTolerance: 0.3,
		HotTolerance:  0.3,
		Precision:     0.1,
		MinTemp:       7,
		MaxTemp:       35,
	}
	return cfg
}

// LoadConfig layers defaults, an optional config file (.yaml/.yml/.json) and
// SWITCHSTAT_* environment variables, in that order.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = kyaml.Parser()
		case ".json":
			parser = kjson.Parser()
		default:
			return cfg, fmt.Errorf("unsupported config extension %q", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			// Config file missing → defaults + env only
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

// envKeyTransform maps SWITCHSTAT_ env var suffixes onto config paths, e.g.
// CONTROLLERS_HTTP_ADDR -> controllers.http.addr. Keys that do not match a
// known section pass through lowercased.
func envKeyTransform(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	parts := strings.Split(strings.ToLower(s), "_")
	switch parts[0] {
	case "controllers":
		if len(parts) >= 3 {
			return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
	case "thermostat":
		if len(parts) >= 3 && parts[1] == "presets" {
			return "thermostat.presets." + strings.Join(parts[2:], "_")
		}
		if len(parts) >= 2 {
			return "thermostat." + strings.Join(parts[1:], "_")
		}
	}
	return strings.Join(parts, "_")
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	// At least one command surface must be up.
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval == 0 {
		cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	}
	if cfg.Controllers.Modbus.UnitID == 0 {
		cfg.Controllers.Modbus.UnitID = 1
	}
}

// ControllerConfig converts the loaded thermostat section into the validated
// core configuration.
func (c Config) ControllerConfig() (thermostat.Config, error) {
	tc := thermostat.Config{
		ColdTolerance:     c.Thermostat.ColdTolerance,
		HotTolerance:      c.Thermostat.HotTolerance,
		ACMode:            c.Thermostat.ACMode,
		MinCycleDuration:  c.Thermostat.MinCycleDuration,
		KeepAliveInterval: c.Thermostat.KeepAlive,
		Precision:         c.Thermostat.Precision,
		MinTemp:           c.Thermostat.MinTemp,
		MaxTemp:           c.Thermostat.MaxTemp,
		TargetTemp:        c.Thermostat.TargetTemp,
	}

	if c.Thermostat.InitialMode != "" {
		m, err := thermostat.ParseMode(c.Thermostat.InitialMode)
		if err != nil {
			return thermostat.Config{}, fmt.Errorf("initial_hvac_mode: %w", err)
		}
		tc.InitialMode = m
	}

	if len(c.Thermostat.Presets) > 0 {
		tc.PresetTemps = make(map[thermostat.Preset]float64, len(c.Thermostat.Presets))
		for name, temp := range c.Thermostat.Presets {
			p, err := thermostat.ParsePreset(name)
			if err != nil {
				return thermostat.Config{}, fmt.Errorf("presets: %w", err)
			}
			if p == thermostat.PresetNone {
				return thermostat.Config{}, fmt.Errorf("presets: %w: none", thermostat.ErrUnknownPreset)
			}
			tc.PresetTemps[p] = temp
		}
	}

	if err := tc.Validate(); err != nil {
		return thermostat.Config{}, err
	}
	return tc, nil
}
