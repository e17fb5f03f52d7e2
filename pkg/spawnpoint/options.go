package spawnpoint

import (
	"github.com/bft-labs/spawnpoint/pkg/log"
	"github.com/bft-labs/spawnpoint/pkg/metrics"
)

// Option configures optional behavior of an App.
type Option func(*options)

// options holds the optional configuration for an App.
type options struct {
	logger  log.Logger
	metrics *metrics.Metrics
	plugins []Plugin
	exitFn  func(code int)
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records lifecycle, queue and monitor activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPlugin registers a plugin to be initialized during Setup.
// Plugins are initialized in registration order and shut down in reverse
// order once the application stops.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithExitFunc replaces os.Exit as the final step of the lifecycle.
// Tests use it to observe the exit code without ending the process.
func WithExitFunc(fn func(code int)) Option {
	return func(o *options) {
		o.exitFn = fn
	}
}
