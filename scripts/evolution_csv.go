package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/openhvac/switchstat/internal/thermostat"
)

type TargetCommand struct {
	IterationNumber int
	Value           float64
}

// switchState tracks the heater directive the controller last issued.
type switchState struct {
	on bool
}

func (s *switchState) TurnOn() error  { s.on = true; return nil }
func (s *switchState) TurnOff() error { s.on = false; return nil }

// SimulateThermostat replays a crude room model through the controller and
// dumps one CSV row per step: temperature, target, hysteresis band and the
// resulting switch state. Handy for eyeballing cycling behavior in a plot.
func SimulateThermostat(iterations int, filename string, targetCommands []TargetCommand) error {
	cfg := thermostat.Config{
		ColdTolerance:    0.3,
		HotTolerance:     0.3,
		MinCycleDuration: 5 * time.Minute,
		Precision:        0.1,
		MinTemp:          7,
		MaxTemp:          35,
		InitialMode:      thermostat.ModeHeat,
	}

	sw := &switchState{}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 10 * time.Second

	ctrl, err := thermostat.New(cfg, thermostat.Deps{
		Actuator: sw,
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return clock },
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %v", err)
	}

	// Room model: heater adds heat while on, the room leaks toward outdoors.
	const (
		outdoor     = 10.0
		lossCoeff   = 0.002
		heaterPower = 0.05 // degrees per step while on
	)
	room := 18.0

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Iteration", "Temperature", "Target", "BandLow", "BandHigh", "SwitchOn"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for i := range iterations {
		for _, cmd := range targetCommands {
			if cmd.IterationNumber == i+1 {
				if err := ctrl.SetTargetTemperature(cmd.Value); err != nil {
					return fmt.Errorf("failed to update target: %v", err)
				}
				break
			}
		}

		ctrl.ObserveTemperature(room)
		snapshot := ctrl.Get()

		if err := writer.Write([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", room),
			fmt.Sprintf("%.2f", snapshot.TargetTemperature),
			fmt.Sprintf("%.2f", snapshot.TargetTemperature-cfg.ColdTolerance),
			fmt.Sprintf("%.2f", snapshot.TargetTemperature+cfg.HotTolerance),
			fmt.Sprintf("%t", sw.on),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}

		room += lossCoeff * (outdoor - room)
		if sw.on {
			room += heaterPower
		}
		clock = clock.Add(step)
	}

	return nil
}

func main() {
	commands := []TargetCommand{
		{
			IterationNumber: 500,
			Value:           22.0,
		},
	}
	SimulateThermostat(2000, "switchstat.csv", commands)
}
