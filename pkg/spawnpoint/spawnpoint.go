package spawnpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/spawnpoint/pkg/codes"
	"github.com/bft-labs/spawnpoint/pkg/lifecycle"
	"github.com/bft-labs/spawnpoint/pkg/log"
	"github.com/bft-labs/spawnpoint/pkg/metrics"
	"github.com/bft-labs/spawnpoint/pkg/monitor"
	"github.com/bft-labs/spawnpoint/pkg/rotation"
)

// debugToggler is implemented by loggers whose debug output can be switched
// at runtime, such as log.ZerologAdapter.
type debugToggler interface {
	SetDebug(enabled bool)
	ToggleDebug() bool
}

// App ties the lifecycle registry, code factory, error monitor and named
// collections of one application run together.
type App struct {
	config   Config
	logger   log.Logger
	metrics  *metrics.Metrics
	registry *lifecycle.Registry
	codes    *codes.Factory
	monitor  *monitor.Monitor
	detach   func()

	mu      sync.Mutex
	plugins []Plugin
	started []Plugin

	collMu sync.Mutex
	pools  map[string]*rotation.Pool[string]
	queues map[string]*rotation.LockQueue[string]
}

// New creates an App with the given configuration. The App starts in
// lifecycle.PhaseIdle; call Setup to initialize plugins and mark it ready.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*App, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	cfg.Collections = cloneCollections(cfg.Collections)

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNoop(o.logger)

	if dt, ok := logger.(debugToggler); ok && cfg.Debug {
		dt.SetDebug(true)
	}

	var regOpts []lifecycle.Option
	var monOpts []monitor.Option
	if o.metrics != nil {
		regOpts = append(regOpts, lifecycle.WithEventEmitter(o.metrics))
		monOpts = append(monOpts, monitor.WithObserver(o.metrics))
	}
	if o.exitFn != nil {
		regOpts = append(regOpts, lifecycle.WithExitFunc(o.exitFn))
	}

	factory := codes.NewFactory(codes.NewCatalog())
	mon := monitor.New(logger, monOpts...)

	a := &App{
		config:   cfg,
		logger:   logger,
		metrics:  o.metrics,
		registry: lifecycle.NewRegistry(cfg.lifecycle(), logger, regOpts...),
		codes:    factory,
		monitor:  mon,
		detach:   mon.Attach(factory),
		plugins:  o.plugins,
		pools:    make(map[string]*rotation.Pool[string]),
		queues:   make(map[string]*rotation.LockQueue[string]),
	}
	a.registry.OnClose(a.close)
	return a, nil
}

// Setup loads codes, enables error tracking when configured, initializes
// plugins in registration order and marks the application ready.
//
// A second call returns a code error wrapping lifecycle.ErrAlreadySetup.
// When a plugin fails, plugins initialized before it stay registered; call
// Stop to shut them down.
func (a *App) Setup(ctx context.Context) error {
	if err := a.registry.Setup(); err != nil {
		return a.codes.Wrap(codes.KindErrorCode, CodeAlreadySetup, err)
	}

	if a.config.CodesFile != "" {
		n, err := a.codes.Catalog().LoadFile(a.config.CodesFile)
		if err != nil {
			return fmt.Errorf("load codes: %w", err)
		}
		a.logger.Info("codes loaded", log.String("file", a.config.CodesFile), log.Int("count", n))
	}

	if a.config.TrackErrors {
		a.monitor.Enable()
		a.logger.Debug("error tracking enabled")
	}

	for _, p := range a.plugins {
		if err := p.Initialize(ctx, a); err != nil {
			a.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			return a.codes.Wrap(codes.KindErrorCode, CodePluginFailed, err)
		}
		a.registry.Register(pluginID(p))
		a.mu.Lock()
		a.started = append(a.started, p)
		a.mu.Unlock()
		a.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	a.registry.Ready()
	a.logger.Info("application ready", log.String("name", a.config.Name))
	return nil
}

// close runs once when the registry starts stopping.
func (a *App) close() {
	a.mu.Lock()
	started := a.started
	a.started = nil
	a.mu.Unlock()

	a.detach()
	a.monitor.Close()

	ctx, cancel := context.WithTimeout(context.Background(), a.config.StopTimeout)
	defer cancel()

	for i := len(started) - 1; i >= 0; i-- {
		p := started[i]
		if err := p.Shutdown(ctx); err != nil {
			a.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			a.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
		a.registry.Deregister(pluginID(p))
	}
}

// Register adds a subsystem id that must deregister before a graceful exit.
func (a *App) Register(id string) {
	a.registry.Register(id)
}

// Deregister removes a subsystem id. Removing the last id after Stop exits
// the process gracefully.
func (a *App) Deregister(id string) {
	a.registry.Deregister(id)
}

// Stop begins or escalates shutdown.
func (a *App) Stop() {
	a.registry.Stop()
}

// OnClose registers fn to run when shutdown begins. Subsystems use it to
// start releasing resources and Deregister once done.
func (a *App) OnClose(fn func()) {
	a.registry.OnClose(fn)
}

// Done is closed once the application exits.
func (a *App) Done() <-chan struct{} {
	return a.registry.Done()
}

// ExitCode returns the exit code, or -1 while the application has not exited.
func (a *App) ExitCode() int {
	return a.registry.ExitCode()
}

// Recover is meant to be deferred at the top of application goroutines.
func (a *App) Recover() {
	a.registry.Recover()
}

// ToggleDebug flips debug logging when the logger supports it and reports
// the new state.
func (a *App) ToggleDebug() bool {
	dt, ok := a.logger.(debugToggler)
	if !ok {
		return false
	}
	on := dt.ToggleDebug()
	a.logger.Info("debug logging toggled", log.Bool("debug", on))
	return on
}

// ErrorCode raises code as a hard application error.
func (a *App) ErrorCode(code string, data map[string]interface{}) *codes.Error {
	return a.codes.ErrorCode(code, data)
}

// FailCode raises code as a soft, user caused failure.
func (a *App) FailCode(code string, data map[string]interface{}) *codes.Error {
	return a.codes.FailCode(code, data)
}

// RegisterLimit calls cb once code has been raised threshold times. Limits
// only fire when TrackErrors is enabled.
func (a *App) RegisterLimit(code string, threshold int, cb monitor.Callback, opts ...monitor.RuleOption) string {
	return a.monitor.RegisterLimit(code, threshold, cb, opts...)
}

// Codes returns the code factory.
func (a *App) Codes() *codes.Factory {
	return a.codes
}

// Registry returns the lifecycle registry.
func (a *App) Registry() *lifecycle.Registry {
	return a.registry
}

// Monitor returns the error threshold monitor.
func (a *App) Monitor() *monitor.Monitor {
	return a.monitor
}

// Logger returns the application logger.
func (a *App) Logger() log.Logger {
	return a.logger
}

// Config returns a copy of the application configuration, including the
// collections set at runtime.
func (a *App) Config() Config {
	a.collMu.Lock()
	defer a.collMu.Unlock()
	cfg := a.config
	cfg.Collections = cloneCollections(a.config.Collections)
	return cfg
}
