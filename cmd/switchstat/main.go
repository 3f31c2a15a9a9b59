package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openhvac/switchstat/cmd/app"
	httpctrl "github.com/openhvac/switchstat/internal/controllers/http"
	modbusctrl "github.com/openhvac/switchstat/internal/controllers/modbus"
	mqttctrl "github.com/openhvac/switchstat/internal/controllers/mqtt"
	"github.com/openhvac/switchstat/internal/device"
	"github.com/openhvac/switchstat/internal/store"
	"github.com/openhvac/switchstat/internal/thermostat"
)

// logActuator stands in for the switch when no MQTT controller is configured
// (dry runs, local testing). Every directive is only logged.
type logActuator struct {
	log zerolog.Logger
}

func (a logActuator) TurnOn() error {
	a.log.Info().Bool("on", true).Msg("switch directive")
	return nil
}

func (a logActuator) TurnOff() error {
	a.log.Info().Bool("on", false).Msg("switch directive")
	return nil
}

func main() {
	var configPath string
	var debug bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if !debug {
		logger = logger.Level(zerolog.InfoLevel)
	}

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	tcfg, err := cfg.ControllerConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("thermostat config")
	}

	deps := thermostat.Deps{
		Log: logger.With().Str("device", cfg.DeviceID).Logger(),
	}

	if cfg.StateFile != "" {
		fs, err := store.NewFileStore(cfg.StateFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("state store")
		}
		deps.Store = fs
	}

	mqttCfg := cfg.Controllers.MQTT
	if mqttCfg.Enabled && mqttCfg.SwitchCommandTopic != "" {
		act, err := mqttctrl.NewActuator(mqttctrl.ActuatorConfig{
			BrokerURL:    mqttCfg.BrokerURL,
			ClientID:     "switchstat-" + cfg.DeviceID + "-actuator",
			CommandTopic: mqttCfg.SwitchCommandTopic,
			PayloadOn:    mqttCfg.PayloadOn,
			PayloadOff:   mqttCfg.PayloadOff,
			QoS:          mqttCfg.QoS,
			Username:     mqttCfg.Username,
			Password:     mqttCfg.Password,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("mqtt actuator")
		}
		if err := act.Connect(); err != nil {
			logger.Fatal().Err(err).Msg("mqtt actuator connect")
		}
		defer act.Close()
		deps.Actuator = act
	} else {
		deps.Actuator = logActuator{log: logger}
	}

	ctrl, err := thermostat.New(tcfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("thermostat")
	}
	dev := device.New(cfg.DeviceID, ctrl)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return dev.Ctrl.Run(ctx) })

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(dev.Ctrl, cfg.Controllers.HTTP.Addr, dev.ID)
		logger.Info().Str("addr", cfg.Controllers.HTTP.Addr).Msg("http controller listening")
		g.Go(func() error { return srv.Run(ctx) })
	}

	if mqttCfg.Enabled {
		mc, err := mqttctrl.New(dev.Ctrl, mqttctrl.Config{
			DeviceID:         dev.ID,
			BrokerURL:        mqttCfg.BrokerURL,
			ClientID:         mqttCfg.ClientID,
			BaseTopic:        mqttCfg.BaseTopic,
			SensorTopic:      mqttCfg.SensorTopic,
			SwitchStateTopic: mqttCfg.SwitchStateTopic,
			PayloadOn:        mqttCfg.PayloadOn,
			PayloadOff:       mqttCfg.PayloadOff,
			QoS:              mqttCfg.QoS,
			RetainSnapshot:   mqttCfg.RetainSnapshot,
			PublishInterval:  mqttCfg.PublishInterval,
			Username:         mqttCfg.Username,
			Password:         mqttCfg.Password,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("mqtt controller")
		}
		logger.Info().Str("broker", mqttCfg.BrokerURL).Msg("mqtt controller starting")
		g.Go(func() error { return mc.Run(ctx) })
	}

	if cfg.Controllers.Modbus.Enabled {
		mb, err := modbusctrl.New(dev.Ctrl, modbusctrl.Config{
			DeviceID:     dev.ID,
			Addr:         cfg.Controllers.Modbus.Addr,
			UnitID:       cfg.Controllers.Modbus.UnitID,
			SyncInterval: cfg.Controllers.Modbus.SyncInterval,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("modbus controller")
		}
		logger.Info().Str("addr", cfg.Controllers.Modbus.Addr).Msg("modbus controller listening")
		g.Go(func() error { return mb.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("daemon exited")
	}
}
