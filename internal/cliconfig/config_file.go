package cliconfig

import (
	"maps"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Name         string              `toml:"name"`
	Debug        *bool               `toml:"debug"`
	StopAttempts int                 `toml:"stop_attempts"`
	StopTimeout  string              `toml:"stop_timeout"`
	CatchPanics  *bool               `toml:"catch_panics"`
	TrackErrors  *bool               `toml:"track_errors"`
	CodesFile    string              `toml:"codes_file"`
	MetricsAddr  string              `toml:"metrics_addr"`
	Collections  map[string][]string `toml:"collections"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
// A relative codes_file is resolved against the directory of the config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	if fc.CodesFile != "" && !filepath.IsAbs(fc.CodesFile) {
		fc.CodesFile = filepath.Join(filepath.Dir(path), fc.CodesFile)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.spawnpoint/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".spawnpoint", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
// Collections have no flag and are merged, file entries replacing
// existing ones of the same name.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("codes", fc.CodesFile, &cfg.CodesFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("stop-timeout", fc.StopTimeout, &cfg.StopTimeout); err != nil {
		return err
	}

	s.setInt("stop-attempts", fc.StopAttempts, &cfg.StopAttempts)

	s.setBool("debug", fc.Debug, &cfg.Debug)
	s.setBool("catch-panics", fc.CatchPanics, &cfg.CatchPanics)
	s.setBool("track-errors", fc.TrackErrors, &cfg.TrackErrors)

	if len(fc.Collections) > 0 {
		if cfg.Collections == nil {
			cfg.Collections = make(map[string][]string, len(fc.Collections))
		}
		maps.Copy(cfg.Collections, fc.Collections)
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
