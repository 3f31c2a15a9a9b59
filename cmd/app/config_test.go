package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openhvac/switchstat/internal/thermostat"
)

func TestEnvKeyTransform_TopLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEVICE_ID", "device_id"},
		{"STATE_FILE", "state_file"},
		{"ADDR", "addr"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Controllers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CONTROLLERS_HTTP_ADDR", "controllers.http.addr"},
		{"CONTROLLERS_MQTT_PUBLISH_INTERVAL", "controllers.mqtt.publish_interval"},
		{"CONTROLLERS_MQTT_SWITCH_COMMAND_TOPIC", "controllers.mqtt.switch_command_topic"},
		{"CONTROLLERS_MODBUS_UNIT_ID", "controllers.modbus.unit_id"},
		{"CONTROLLERS_HTTP", "controllers_http"}, // not enough parts -> fallback
		{"controllers_HTTP_addr", "controllers.http.addr"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Thermostat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"THERMOSTAT_COLD_TOLERANCE", "thermostat.cold_tolerance"},
		{"THERMOSTAT_MIN_CYCLE_DURATION", "thermostat.min_cycle_duration"},
		{"THERMOSTAT_INITIAL_HVAC_MODE", "thermostat.initial_hvac_mode"},
		{"THERMOSTAT_PRESETS_AWAY", "thermostat.presets.away"},
		{"THERMOSTAT_PRESETS_COMFORT", "thermostat.presets.comfort"},
		{"THERMOSTAT", "thermostat"}, // not enough parts -> passthrough
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DeviceID != "default" {
		t.Fatalf("expected default device id, got %q", cfg.DeviceID)
	}
	if cfg.Controllers.HTTP.Addr != ":8080" {
		t.Fatalf("expected default http addr, got %q", cfg.Controllers.HTTP.Addr)
	}
	// HTTP is enabled when nothing else is
	if !cfg.Controllers.HTTP.Enabled {
		t.Fatal("expected http controller enabled by default")
	}
	if cfg.Thermostat.ColdTolerance != 0.3 || cfg.Thermostat.HotTolerance != 0.3 {
		t.Fatalf("expected default tolerances 0.3, got %v/%v",
			cfg.Thermostat.ColdTolerance, cfg.Thermostat.HotTolerance)
	}
	if cfg.Thermostat.MinTemp != 7 || cfg.Thermostat.MaxTemp != 35 {
		t.Fatalf("expected default range 7..35, got %v..%v",
			cfg.Thermostat.MinTemp, cfg.Thermostat.MaxTemp)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
device_id: bedroom
state_file: /var/lib/switchstat/bedroom.yaml
controllers:
  mqtt:
    enabled: true
    broker_url: tcp://broker:1883
    sensor_topic: sensors/bedroom/temperature
    switch_command_topic: switches/bedroom_heater/set
thermostat:
  ac_mode: false
  cold_tolerance: 0.5
  hot_tolerance: 0.5
  min_cycle_duration: 10m
  keep_alive: 3m
  precision: 0.5
  initial_hvac_mode: heat
  presets:
    away: 16
    sleep: 17
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DeviceID != "bedroom" {
		t.Fatalf("expected device bedroom, got %q", cfg.DeviceID)
	}
	if !cfg.Controllers.MQTT.Enabled || cfg.Controllers.MQTT.BrokerURL != "tcp://broker:1883" {
		t.Fatalf("mqtt section not applied: %+v", cfg.Controllers.MQTT)
	}
	// HTTP stays off once another surface is enabled
	if cfg.Controllers.HTTP.Enabled {
		t.Fatal("expected http disabled when mqtt enabled")
	}
	if cfg.Thermostat.MinCycleDuration != 10*time.Minute {
		t.Fatalf("expected min_cycle_duration 10m, got %v", cfg.Thermostat.MinCycleDuration)
	}
	if cfg.Thermostat.KeepAlive != 3*time.Minute {
		t.Fatalf("expected keep_alive 3m, got %v", cfg.Thermostat.KeepAlive)
	}
	if cfg.Thermostat.Presets["away"] != 16 || cfg.Thermostat.Presets["sleep"] != 17 {
		t.Fatalf("presets not applied: %v", cfg.Thermostat.Presets)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("device_id: fromfile\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SWITCHSTAT_DEVICE_ID", "fromenv")
	t.Setenv("SWITCHSTAT_THERMOSTAT_COLD_TOLERANCE", "0.7")
	t.Setenv("SWITCHSTAT_CONTROLLERS_HTTP_ADDR", ":9090")
	t.Setenv("SWITCHSTAT_THERMOSTAT_PRESETS_AWAY", "15.5")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DeviceID != "fromenv" {
		t.Fatalf("expected env to win, got %q", cfg.DeviceID)
	}
	if cfg.Thermostat.ColdTolerance != 0.7 {
		t.Fatalf("expected cold_tolerance 0.7, got %v", cfg.Thermostat.ColdTolerance)
	}
	if cfg.Controllers.HTTP.Addr != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Controllers.HTTP.Addr)
	}
	if cfg.Thermostat.Presets["away"] != 15.5 {
		t.Fatalf("expected preset away 15.5, got %v", cfg.Thermostat.Presets)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DeviceID != "default" {
		t.Fatalf("expected defaults, got %q", cfg.DeviceID)
	}
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	if _, err := LoadConfig("config.toml"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestControllerConfigConversion(t *testing.T) {
	cfg := defaultConfig()
	cfg.Thermostat.InitialMode = "heat"
	cfg.Thermostat.Presets = map[string]float64{"away": 16, "comfort": 22}

	tc, err := cfg.ControllerConfig()
	if err != nil {
		t.Fatalf("ControllerConfig: %v", err)
	}

	if tc.InitialMode != thermostat.ModeHeat {
		t.Fatalf("expected InitialMode heat, got %v", tc.InitialMode)
	}
	if tc.PresetTemps[thermostat.PresetAway] != 16 || tc.PresetTemps[thermostat.PresetComfort] != 22 {
		t.Fatalf("presets not converted: %v", tc.PresetTemps)
	}
}

func TestControllerConfigRejectsBadInitialMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Thermostat.InitialMode = "turbo"

	if _, err := cfg.ControllerConfig(); err == nil {
		t.Fatal("expected error for unknown initial mode")
	}
}

func TestControllerConfigRejectsNonePresetKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Thermostat.Presets = map[string]float64{"none": 20}

	if _, err := cfg.ControllerConfig(); err == nil {
		t.Fatal("expected error for preset key 'none'")
	}
}

func TestControllerConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	cfg.Thermostat.ColdTolerance = -1

	if _, err := cfg.ControllerConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}
