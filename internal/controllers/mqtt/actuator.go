package mqttctrl

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ActuatorConfig describes where switch commands are published.
type ActuatorConfig struct {
	BrokerURL string
	ClientID  string

	CommandTopic string
	PayloadOn    string
	PayloadOff   string

	QoS    byte
	Retain bool

	Username string
	Password string
}

// Actuator implements thermostat.SwitchActuator by publishing ON/OFF payloads
// to the switch command topic. It holds its own connection so the controller
// can dispatch directives before the command surfaces are up.
type Actuator struct {
	cfg    ActuatorConfig
	client mqtt.Client
}

func NewActuator(cfg ActuatorConfig) (*Actuator, error) {
	if cfg.CommandTopic == "" {
		return nil, errors.New("mqtt: CommandTopic is required")
	}
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "switchstat-actuator"
	}
	if cfg.PayloadOn == "" {
		cfg.PayloadOn = "ON"
	}
	if cfg.PayloadOff == "" {
		cfg.PayloadOff = "OFF"
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Actuator{cfg: cfg}, nil
}

// Connect must succeed before the actuator is handed to the controller.
func (a *Actuator) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(a.cfg.BrokerURL).
		SetClientID(a.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if a.cfg.Username != "" {
		opts.SetUsername(a.cfg.Username)
		opts.SetPassword(a.cfg.Password)
	}

	a.client = mqtt.NewClient(opts)
	tok := a.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt actuator connect: %w", err)
	}
	return nil
}

func (a *Actuator) Close() {
	if a.client != nil {
		a.client.Disconnect(250)
	}
}

func (a *Actuator) TurnOn() error {
	return a.publish(a.cfg.PayloadOn)
}

func (a *Actuator) TurnOff() error {
	return a.publish(a.cfg.PayloadOff)
}

func (a *Actuator) publish(payload string) error {
	tok := a.client.Publish(a.cfg.CommandTopic, a.cfg.QoS, a.cfg.Retain, payload)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", a.cfg.CommandTopic, err)
	}
	return nil
}
