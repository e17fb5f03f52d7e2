package lifecycle

import "time"

// Phase represents the lifecycle phase of an application run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhaseRunning
	PhaseStopping
	PhaseExiting
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseSetup:
		return "Setup"
	case PhaseRunning:
		return "Running"
	case PhaseStopping:
		return "Stopping"
	case PhaseExiting:
		return "Exiting"
	default:
		return "Unknown"
	}
}

// Status mirrors the flags tracked across one process run.
// Setup flips once, Running goes false->true->false, Stopping flips once
// and StopAttempts only grows while stopping.
type Status struct {
	Setup        bool
	Running      bool
	Stopping     bool
	StopAttempts int
}

// Config controls shutdown escalation.
type Config struct {
	// StopAttempts is how many repeated stop requests are tolerated before
	// the process is killed. Default: 3
	StopAttempts int

	// StopTimeout bounds how long a graceful shutdown may take once a
	// second stop request arrives. Default: 15 seconds
	StopTimeout time.Duration

	// CatchPanics arms fatal-error observation once the registry is ready.
	// Default: true
	CatchPanics bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StopAttempts: 3,
		StopTimeout:  15 * time.Second,
		CatchPanics:  true,
	}
}

// EventEmitter is called when the registry changes phase or membership.
type EventEmitter interface {
	OnStateChange(previous, current Phase, reason string)
	OnMembersChanged(size int)
}

// Option configures optional behavior of a Registry.
type Option func(*Registry)

// WithEventEmitter sets the receiver of phase and membership notifications.
func WithEventEmitter(emitter EventEmitter) Option {
	return func(r *Registry) {
		r.emitter = emitter
	}
}

// WithExitFunc replaces os.Exit as the terminal action. The function receives
// 0 for a graceful exit and 1 for a forced one.
func WithExitFunc(fn func(code int)) Option {
	return func(r *Registry) {
		r.exitFn = fn
	}
}
