package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openhvac/switchstat/internal/ports"
	"github.com/openhvac/switchstat/internal/thermostat"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// SensorTopic carries temperature readings as a plain numeric payload.
	// SwitchStateTopic mirrors the actual switch state as PayloadOn/PayloadOff.
	SensorTopic      string
	SwitchStateTopic string
	PayloadOn        string
	PayloadOff       string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.ThermostatService
	cfg Config

	client mqtt.Client
}

func New(svc ports.ThermostatService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "switchstat/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "switchstat-" + cfg.DeviceID
	}
	if cfg.PayloadOn == "" {
		cfg.PayloadOn = "ON"
	}
	if cfg.PayloadOff == "" {
		cfg.PayloadOff = "OFF"
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// All set commands under BaseTopic.
		token := cl.Subscribe(c.topic("set/+"), c.cfg.QoS, c.onMessage)
		token.Wait()
		if c.cfg.SensorTopic != "" {
			token = cl.Subscribe(c.cfg.SensorTopic, c.cfg.QoS, c.onSensor)
			token.Wait()
		}
		if c.cfg.SwitchStateTopic != "" {
			token = cl.Subscribe(c.cfg.SwitchStateTopic, c.cfg.QoS, c.onSwitchState)
			token.Wait()
		}
		// If subscribe fails, paho exposes token.Error().
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	var last thermostat.Snapshot
	first := true

	// publish immediately once
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if first || !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
				first = false
			}
		}
	}
}

func (c *Controller) publishSnapshot() {
	s := c.svc.Get()
	dto := snapshotDTO{
		Mode:              s.Mode.String(),
		Preset:            s.Preset.String(),
		TargetTemperature: s.TargetTemperature,
		SwitchOn:          s.SwitchOn,
	}
	if s.TemperatureKnown {
		cur := s.CurrentTemperature
		dto.CurrentTemperature = &cur
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

type snapshotDTO struct {
	Mode               string   `json:"mode"`
	Preset             string   `json:"preset"`
	TargetTemperature  float64  `json:"target_temperature"`
	CurrentTemperature *float64 `json:"current_temperature"`
	SwitchOn           bool     `json:"switch_on"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by field
	switch field {
	case "target_temperature":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetTargetTemperature(v)

	case "preset":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		p, err := thermostat.ParsePreset(s)
		if err != nil {
			return
		}
		_ = c.svc.SetPreset(p)

	case "mode":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		m, err := thermostat.ParseMode(s)
		if err != nil {
			return
		}
		_ = c.svc.SetMode(m)
	}
}

// onSensor forwards temperature readings. Payloads that do not parse as a
// number (sensors publish "unknown"/"unavailable" while offline) are dropped
// and the controller keeps its previous reading.
func (c *Controller) onSensor(_ mqtt.Client, msg mqtt.Message) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
	if err != nil {
		return
	}
	c.svc.ObserveTemperature(v)
}

func (c *Controller) onSwitchState(_ mqtt.Client, msg mqtt.Message) {
	switch strings.TrimSpace(string(msg.Payload())) {
	case c.cfg.PayloadOn:
		c.svc.ObserveSwitchState(true)
	case c.cfg.PayloadOff:
		c.svc.ObserveSwitchState(false)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
