package cliconfig

import (
	"fmt"
	"net"
	"time"

	"github.com/bft-labs/spawnpoint/pkg/spawnpoint"
)

// Config holds CLI configuration for spawnpoint.
type Config struct {
	Name  string
	Debug bool

	StopAttempts int
	StopTimeout  time.Duration
	CatchPanics  bool

	TrackErrors bool
	CodesFile   string

	MetricsAddr string

	Collections map[string][]string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:         "spawnpoint",
		StopAttempts: 3,
		StopTimeout:  15 * time.Second,
		CatchPanics:  true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.StopAttempts <= 0 {
		return fmt.Errorf("stop attempts must be positive")
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive")
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("metrics addr: %w", err)
		}
	}
	for name, items := range c.Collections {
		if len(items) == 0 {
			return fmt.Errorf("collection %q is empty", name)
		}
	}
	return nil
}

// Spawnpoint converts the CLI configuration into the library configuration.
func (c *Config) Spawnpoint() spawnpoint.Config {
	return spawnpoint.Config{
		Name:         c.Name,
		Debug:        c.Debug,
		StopAttempts: c.StopAttempts,
		StopTimeout:  c.StopTimeout,
		CatchPanics:  c.CatchPanics,
		TrackErrors:  c.TrackErrors,
		CodesFile:    c.CodesFile,
		Collections:  c.Collections,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
