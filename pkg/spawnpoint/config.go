package spawnpoint

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/spawnpoint/pkg/lifecycle"
)

// Config holds the configuration of a spawnpoint application.
// Use DefaultConfig to get a Config with sensible defaults.
type Config struct {
	// Name identifies the application in logs.
	Name string `validate:"required"`

	// Debug enables debug logging when the logger supports it.
	Debug bool

	// StopAttempts is how many repeated stop requests are tolerated before
	// the process is killed. Default: 3
	StopAttempts int `validate:"gte=1"`

	// StopTimeout bounds a graceful shutdown once a second stop request
	// arrives. Default: 15 seconds
	StopTimeout time.Duration `validate:"gt=0"`

	// CatchPanics routes recovered panics into the lifecycle registry once
	// the application is ready. Default: true
	CatchPanics bool

	// TrackErrors enables the error threshold monitor. Default: false
	TrackErrors bool

	// CodesFile is an optional TOML file of code messages loaded on Setup.
	CodesFile string

	// Collections are the named item lists served by RoundRobin,
	// GetAndLock and Acquire.
	Collections map[string][]string `validate:"omitempty,dive,keys,required,endkeys,min=1"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	lc := lifecycle.DefaultConfig()
	return Config{
		Name:         "spawnpoint",
		StopAttempts: lc.StopAttempts,
		StopTimeout:  lc.StopTimeout,
		CatchPanics:  lc.CatchPanics,
	}
}

// SetDefaults fills zero values with defaults. CatchPanics and TrackErrors
// are left as set.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.StopAttempts <= 0 {
		c.StopAttempts = def.StopAttempts
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = def.StopTimeout
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) lifecycle() lifecycle.Config {
	return lifecycle.Config{
		StopAttempts: c.StopAttempts,
		StopTimeout:  c.StopTimeout,
		CatchPanics:  c.CatchPanics,
	}
}

// cloneCollections returns a copy of c that shares no map or slice with it.
func cloneCollections(c map[string][]string) map[string][]string {
	if c == nil {
		return nil
	}
	out := make(map[string][]string, len(c))
	for name, items := range c {
		out[name] = slices.Clone(items)
	}
	return out
}
