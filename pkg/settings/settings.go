// Package settings manages persistent operator settings for the panshift
// and panlab CLIs.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent operator preferences. Flags and PANSHIFT_*
// environment variables take precedence over anything stored here.
type Settings struct {
	// ConfigDir is where relative spec paths are resolved from.
	ConfigDir string `json:"config_dir,omitempty"`

	// HistoryDB overrides the run-history database path.
	HistoryDB string `json:"history_db,omitempty"`

	// DefaultStrategy applies when a push selection names no conflict
	// strategy: skip, overwrite, or rename.
	DefaultStrategy string `json:"default_strategy,omitempty"`

	// NoColor disables colored CLI output.
	NoColor bool `json:"no_color,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "panshift_settings.json"
	}
	return filepath.Join(home, ".panshift", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the config directory (with fallback)
func (s *Settings) GetConfigDir() string {
	if s.ConfigDir != "" {
		return s.ConfigDir
	}
	return "."
}

// GetStrategy returns the default conflict strategy (with fallback)
func (s *Settings) GetStrategy() string {
	if s.DefaultStrategy != "" {
		return s.DefaultStrategy
	}
	return "skip"
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
