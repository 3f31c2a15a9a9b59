// Package store persists the thermostat state that must survive restarts as a
// small YAML file, kept human-editable for field debugging.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openhvac/switchstat/internal/thermostat"
)

type fileState struct {
	Mode              string  `yaml:"mode"`
	TargetTemperature float64 `yaml:"target_temperature"`
	Preset            string  `yaml:"preset"`
}

// FileStore implements thermostat.StateStore on top of a single YAML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	return &FileStore{path: path}, nil
}

// Load returns (nil, nil) when no state file exists yet.
func (s *FileStore) Load() (*thermostat.PersistedState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	var fs fileState
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", s.path, err)
	}

	mode, err := thermostat.ParseMode(fs.Mode)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", s.path, err)
	}
	preset, err := thermostat.ParsePreset(fs.Preset)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", s.path, err)
	}

	return &thermostat.PersistedState{
		Mode:              mode,
		TargetTemperature: fs.TargetTemperature,
		Preset:            preset,
	}, nil
}

// Save writes atomically: temp file in the same directory, then rename.
func (s *FileStore) Save(st thermostat.PersistedState) error {
	fs := fileState{
		Mode:              st.Mode.String(),
		TargetTemperature: st.TargetTemperature,
		Preset:            st.Preset.String(),
	}
	data, err := yaml.Marshal(fs)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".switchstat-state-*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename to %s: %w", s.path, err)
	}
	return nil
}
