package thermostat

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SwitchActuator dispatches on/off directives to the controlled switch.
// Commands are fire-and-forget; actual switch state is reconciled separately
// through Controller.ObserveSwitchState.
type SwitchActuator interface {
	TurnOn() error
	TurnOff() error
}

// StateStore supplies the persisted state at startup and records it again
// after every accepted command.
type StateStore interface {
	// Load returns (nil, nil) when no persisted state exists.
	Load() (*PersistedState, error)
	Save(PersistedState) error
}

// PersistedState is the part of the controller state that survives restarts.
type PersistedState struct {
	Mode              Mode
	TargetTemperature float64
	Preset            Preset
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Mode               Mode
	Preset             Preset
	TargetTemperature  float64
	CurrentTemperature float64
	TemperatureKnown   bool
	SwitchOn           bool
	MinTemp            float64
	MaxTemp            float64
}

// Deps are the collaborators injected into a Controller.
type Deps struct {
	Actuator SwitchActuator
	Store    StateStore // optional
	Log      zerolog.Logger
	Now      func() time.Time // optional, defaults to time.Now
}

// Controller is the thermostat decision engine. Every input is serialized
// under one mutex and the resulting switch directive is dispatched before the
// mutex is released, so decisions never overlap.
type Controller struct {
	mu    sync.Mutex
	cfg   Config
	reg   regulator
	act   SwitchActuator
	store StateStore
	log   zerolog.Logger
	now   func() time.Time

	mode    Mode
	target  float64
	saved   float64 // target in effect before a preset was applied
	preset  Preset
	current float64
	hasTemp bool

	switchOn   bool // observed switch state, may be stale
	active     bool // last commanded switch state
	reconciled bool // first switch observation has been folded in

	lastChange    time.Time
	hasLastChange bool
}

type controlReason int

const (
	reasonSignal     controlReason = iota // temperature reading or command
	reasonModeChange                      // exempt from the min-cycle gate
)

// New validates cfg, adopts persisted state from deps.Store when available and
// returns a controller ready to receive events. The config InitialMode
// override wins over any restored mode.
func New(cfg Config, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Actuator == nil {
		return nil, ErrNilActuator
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		cfg:   cfg,
		reg:   regulator{coldTolerance: cfg.ColdTolerance, hotTolerance: cfg.HotTolerance},
		act:   deps.Actuator,
		store: deps.Store,
		log:   deps.Log,
		now:   now,

		mode:   ModeOff,
		target: cfg.defaultTarget(),
		preset: PresetNone,
	}
	c.saved = c.target

	if c.store != nil {
		st, err := c.store.Load()
		if err != nil {
			c.log.Warn().Err(err).Msg("loading persisted state failed, starting fresh")
		} else if st != nil {
			c.restore(*st)
		}
	}
	if cfg.InitialMode != ModeUnknown {
		c.mode = cfg.InitialMode
	}
	return c, nil
}

// restore adopts a persisted state, discarding fields that no longer fit the
// current configuration.
func (c *Controller) restore(st PersistedState) {
	if c.cfg.SupportsMode(st.Mode) {
		c.mode = st.Mode
	}
	if !math.IsNaN(st.TargetTemperature) && !math.IsInf(st.TargetTemperature, 0) {
		c.target = c.cfg.roundTarget(st.TargetTemperature)
		c.saved = c.target
	}
	if temp, ok := c.cfg.PresetTemps[st.Preset]; ok {
		c.preset = st.Preset
		c.target = c.cfg.roundTarget(temp)
	}
}

// Get returns a snapshot of the controller state.
func (c *Controller) Get() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Mode:               c.mode,
		Preset:             c.preset,
		TargetTemperature:  c.target,
		CurrentTemperature: c.current,
		TemperatureKnown:   c.hasTemp,
		SwitchOn:           c.switchOn,
		MinTemp:            c.cfg.MinTemp,
		MaxTemp:            c.cfg.MaxTemp,
	}
}

// ObserveTemperature feeds a sensor reading into the controller. Non-finite
// values are dropped and the previous reading is retained.
func (c *Controller) ObserveTemperature(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.log.Debug().Float64("value", v).Msg("ignoring non-finite temperature reading")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = v
	c.hasTemp = true
	if err := c.control(reasonSignal); err != nil {
		c.log.Error().Err(err).Msg("control after temperature reading")
	}
}

// ObserveSwitchState mirrors the actual switch state. It is bookkeeping, not a
// control input: only the first observation after startup triggers a decision,
// reconciling a switch left on by a previous session.
func (c *Controller) ObserveSwitchState(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchOn = on
	if c.reconciled {
		return
	}
	c.reconciled = true
	c.active = on
	if err := c.control(reasonSignal); err != nil {
		c.log.Error().Err(err).Msg("startup reconciliation")
	}
}

// SetTargetTemperature sets a manual target, clearing any active preset.
func (c *Controller) SetTargetTemperature(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrTargetOutOfRange
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v < c.cfg.MinTemp || v > c.cfg.MaxTemp {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrTargetOutOfRange, v, c.cfg.MinTemp, c.cfg.MaxTemp)
	}
	c.target = c.cfg.roundTarget(v)
	c.preset = PresetNone
	c.persist()
	return c.control(reasonSignal)
}

// SetPreset activates a configured preset, or PresetNone to restore the target
// that was in effect before the first preset was applied. Re-setting the
// current preset is a no-op.
func (c *Controller) SetPreset(p Preset) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p != PresetNone {
		if _, ok := c.cfg.PresetTemps[p]; !ok {
			return fmt.Errorf("%w: %s", ErrPresetNotConfigured, p)
		}
	}
	if p == c.preset {
		return nil
	}
	if p == PresetNone {
		c.target = c.saved
	} else {
		if c.preset == PresetNone {
			c.saved = c.target
		}
		c.target = c.cfg.roundTarget(c.cfg.PresetTemps[p])
	}
	c.preset = p
	c.persist()
	return c.control(reasonSignal)
}

// SetMode switches the operating mode. Transitions to ModeOff force the switch
// off; mode changes bypass the minimum-cycle gate.
func (c *Controller) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, m)
	}
	if !c.cfg.SupportsMode(m) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m == c.mode {
		return nil
	}
	c.mode = m
	c.persist()
	return c.control(reasonModeChange)
}

// KeepAlive re-issues the last commanded directive unconditionally, guarding
// against actuator state drift.
func (c *Controller) KeepAlive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.dispatch(c.active); err != nil {
		c.log.Error().Err(err).Msg("keep-alive dispatch")
	}
}

// Run owns the keep-alive ticker. It blocks until ctx is canceled; without a
// configured interval it only waits.
func (c *Controller) Run(ctx context.Context) error {
	if c.cfg.KeepAliveInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.KeepAlive()
		}
	}
}

// control runs the decision algorithm. Caller must hold c.mu.
//
// Off mode needs no reading: a restored or forced off mode turns the switch
// off at startup reconciliation without waiting for the sensor.
func (c *Controller) control(reason controlReason) error {
	var desired bool
	if c.mode == ModeOff {
		desired = false
	} else {
		if !c.hasTemp {
			return nil
		}
		desired = c.reg.desired(c.mode, c.current, c.target, c.active)
	}

	if desired == c.active {
		return nil
	}
	if reason != reasonModeChange && c.cfg.MinCycleDuration > 0 && c.hasLastChange {
		if c.now().Sub(c.lastChange) < c.cfg.MinCycleDuration {
			c.log.Debug().Bool("desired", desired).Msg("transition suppressed by min cycle duration")
			return nil
		}
	}

	// The timestamp advances even when dispatch fails: under-cycling beats
	// short-cycling the equipment with rapid retries.
	c.lastChange = c.now()
	c.hasLastChange = true
	c.active = desired
	return c.dispatch(desired)
}

func (c *Controller) dispatch(on bool) error {
	var err error
	if on {
		err = c.act.TurnOn()
	} else {
		err = c.act.TurnOff()
	}
	if err != nil {
		return fmt.Errorf("switch command (on=%v): %w", on, err)
	}
	c.log.Debug().Bool("on", on).Msg("switch directive dispatched")
	return nil
}

func (c *Controller) persist() {
	if c.store == nil {
		return
	}
	st := PersistedState{
		Mode:              c.mode,
		TargetTemperature: c.target,
		Preset:            c.preset,
	}
	if err := c.store.Save(st); err != nil {
		c.log.Warn().Err(err).Msg("persisting state failed")
	}
}
