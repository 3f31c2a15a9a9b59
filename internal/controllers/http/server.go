package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/openhvac/switchstat/internal/ports"
	"github.com/openhvac/switchstat/internal/thermostat"
)

type Server struct {
	svc      ports.ThermostatService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server.
func New(svc ports.ThermostatService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/target_temperature", s.handlePostTarget)
	mux.HandleFunc("POST /v1/preset", s.handlePostPreset)
	mux.HandleFunc("POST /v1/mode", s.handlePostMode)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID           string   `json:"device_id"`
	Mode               string   `json:"mode"`
	Preset             string   `json:"preset"`
	TargetTemperature  float64  `json:"target_temperature"`
	CurrentTemperature *float64 `json:"current_temperature"`
	SwitchOn           bool     `json:"switch_on"`
	MinTemp            float64  `json:"min_temp"`
	MaxTemp            float64  `json:"max_temp"`
}

func toDTO(s thermostat.Snapshot) snapshotDTO {
	dto := snapshotDTO{
		Mode:              s.Mode.String(),
		Preset:            s.Preset.String(),
		TargetTemperature: s.TargetTemperature,
		SwitchOn:          s.SwitchOn,
		MinTemp:           s.MinTemp,
		MaxTemp:           s.MaxTemp,
	}
	if s.TemperatureKnown {
		cur := s.CurrentTemperature
		dto.CurrentTemperature = &cur
	}
	return dto
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handlePostTarget(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetTargetTemperature(v)
	})
}

func (s *Server) handlePostPreset(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "away"}
	postValue(s, w, r, func(v string) error {
		p, err := thermostat.ParsePreset(v)
		if err != nil {
			return err
		}
		return s.svc.SetPreset(p)
	})
}

func (s *Server) handlePostMode(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "heat"}
	postValue(s, w, r, func(v string) error {
		m, err := thermostat.ParseMode(v)
		if err != nil {
			return err
		}
		return s.svc.SetMode(m)
	})
}

// ---- generic helpers ----

func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
