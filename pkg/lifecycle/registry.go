package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/spawnpoint/pkg/log"
)

// Common lifecycle errors.
var (
	ErrAlreadySetup = errors.New("spawnpoint: already set up")
	ErrFatal        = errors.New("spawnpoint: fatal error")
)

// Exit codes handed to the exit function.
const (
	ExitGraceful = 0
	ExitForced   = 1
)

// Registry tracks live subsystems and drives the process from setup to exit.
// Subsystems owning live resources Register an id and Deregister it once
// those resources are released; the process exits gracefully only when no
// ids remain and the registry is no longer running.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	phase    Phase
	status   Status
	members  map[string]struct{}
	armed    bool
	timer    *time.Timer
	exitCode int
	onClose  []func()
	done     chan struct{}

	logger  log.Logger
	emitter EventEmitter
	exitFn  func(code int)
}

// NewRegistry creates a registry in PhaseIdle.
func NewRegistry(cfg Config, logger log.Logger, opts ...Option) *Registry {
	def := DefaultConfig()
	if cfg.StopAttempts <= 0 {
		cfg.StopAttempts = def.StopAttempts
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	r := &Registry{
		cfg:      cfg,
		phase:    PhaseIdle,
		members:  make(map[string]struct{}),
		exitCode: -1,
		done:     make(chan struct{}),
		logger:   log.OrNoop(logger),
		exitFn:   os.Exit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase returns the current phase.
func (r *Registry) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Status returns a copy of the run flags.
func (r *Registry) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Members returns the registered ids in sorted order.
func (r *Registry) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Done is closed once the registry reaches PhaseExiting.
func (r *Registry) Done() <-chan struct{} {
	return r.done
}

// ExitCode returns the exit code chosen by Exit, or -1 before exit.
func (r *Registry) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode
}

// OnClose subscribes fn to the close notification sent on the first Stop.
// Handlers run synchronously in registration order.
func (r *Registry) OnClose(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = append(r.onClose, fn)
}

// Setup marks the registry as set up. A second call returns ErrAlreadySetup.
func (r *Registry) Setup() error {
	r.mu.Lock()
	if r.status.Setup {
		r.mu.Unlock()
		return ErrAlreadySetup
	}
	r.status.Setup = true
	prev := r.phase
	if r.phase == PhaseIdle {
		r.phase = PhaseSetup
	}
	cur := r.phase
	r.mu.Unlock()

	r.transitioned(prev, cur, "setup")
	return nil
}

// Register adds id to the live set. Registering an id twice is a no-op.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	if r.phase == PhaseExiting {
		r.mu.Unlock()
		return
	}
	if _, ok := r.members[id]; ok {
		r.mu.Unlock()
		return
	}
	r.members[id] = struct{}{}
	size := len(r.members)
	r.mu.Unlock()

	r.logger.Info("subsystem registered", log.String("id", id))
	if r.emitter != nil {
		r.emitter.OnMembersChanged(size)
	}
}

// Deregister removes id from the live set. Unknown ids are ignored. When the
// removal empties the set and the registry is not running the process exits
// gracefully.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	if r.phase == PhaseExiting {
		r.mu.Unlock()
		return
	}
	if _, ok := r.members[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.members, id)
	size := len(r.members)
	exit := !r.status.Running && size == 0
	r.mu.Unlock()

	r.logger.Warn("subsystem deregistered", log.String("id", id))
	if r.emitter != nil {
		r.emitter.OnMembersChanged(size)
	}
	if exit {
		r.Exit(true)
	}
}

// Ready marks the application as running and, when configured, arms
// fatal-error observation.
func (r *Registry) Ready() {
	r.mu.Lock()
	if r.phase == PhaseExiting || r.status.Stopping {
		r.mu.Unlock()
		return
	}
	prev := r.phase
	r.status.Running = true
	r.phase = PhaseRunning
	r.armed = r.cfg.CatchPanics
	r.mu.Unlock()

	r.transitioned(prev, PhaseRunning, "ready")
}

// ReportFatal delivers an error that would otherwise crash the process.
// It returns false when fatal observation is not armed, leaving the caller
// to handle err. While not running, a fatal error escalates shutdown.
func (r *Registry) ReportFatal(err error) bool {
	r.mu.Lock()
	armed := r.armed
	running := r.status.Running
	exiting := r.phase == PhaseExiting
	r.mu.Unlock()

	if !armed {
		return false
	}
	if exiting {
		return true
	}
	r.logger.Error("uncaught error", log.Err(err))
	if !running {
		r.Stop()
	}
	return true
}

// Recover is meant to be deferred at the top of goroutines owned by the
// application. A recovered panic is passed to ReportFatal and re-raised
// when fatal observation is not armed.
func (r *Registry) Recover() {
	v := recover()
	if v == nil {
		return
	}
	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%w: %v", ErrFatal, v)
	}
	if !r.ReportFatal(err) {
		panic(v)
	}
}

// Stop requests shutdown using the configured StopTimeout for escalation.
func (r *Registry) Stop() {
	r.StopWithTimeout(0)
}

// StopWithTimeout requests shutdown. The first call closes subsystems and
// waits for them to deregister. The first repeated call arms a deadline of
// timeout (StopTimeout when zero) after which the process is killed, and
// once StopAttempts repeated calls have been made the process is killed
// immediately.
func (r *Registry) StopWithTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = r.cfg.StopTimeout
	}

	r.mu.Lock()
	if r.phase == PhaseExiting {
		r.mu.Unlock()
		return
	}

	if r.status.Stopping {
		r.status.StopAttempts++
		attempts := r.status.StopAttempts
		if attempts == 1 {
			r.timer = time.AfterFunc(timeout, func() {
				r.logger.Error("shutdown took too long, killing process", log.Duration("timeout", timeout))
				r.Exit(false)
			})
		}
		r.mu.Unlock()

		if attempts == 1 {
			r.logger.Warn("graceful shutdown deadline armed", log.Duration("timeout", timeout))
		}
		if attempts < r.cfg.StopAttempts {
			r.logger.Warn("already stopping",
				log.Int("attempts", attempts),
				log.Int("remaining", r.cfg.StopAttempts-attempts),
			)
			return
		}
		r.logger.Error("forcefully killing process", log.Int("attempts", attempts))
		r.Exit(false)
		return
	}

	prev := r.phase
	r.status.Running = false
	r.status.Stopping = true
	r.phase = PhaseStopping
	handlers := append([]func(){}, r.onClose...)
	r.mu.Unlock()

	r.logger.Info("stopping gracefully")
	r.transitioned(prev, PhaseStopping, "stop requested")

	for _, fn := range handlers {
		fn()
	}

	if r.Len() == 0 {
		r.Exit(true)
	}
}

// Exit terminates the run. It is terminal: only the first call has an
// effect. A graceful exit uses code 0, a forced one code 1.
func (r *Registry) Exit(graceful bool) {
	r.mu.Lock()
	if r.phase == PhaseExiting {
		r.mu.Unlock()
		return
	}
	prev := r.phase
	r.phase = PhaseExiting
	r.status.Running = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	code := ExitForced
	reason := "forced"
	if graceful {
		code = ExitGraceful
		reason = "graceful"
	}
	r.exitCode = code
	close(r.done)
	live := make([]string, 0, len(r.members))
	for id := range r.members {
		live = append(live, id)
	}
	r.mu.Unlock()

	r.transitioned(prev, PhaseExiting, reason)
	if graceful {
		r.logger.Info("gracefully closed")
	} else if len(live) > 0 {
		sort.Strings(live)
		r.logger.Warn("exiting with live subsystems", log.Strings("members", live))
	}
	r.exitFn(code)
}

// transitioned emits a phase change outside of the lock.
func (r *Registry) transitioned(prev, cur Phase, reason string) {
	if prev == cur {
		return
	}
	if r.emitter != nil {
		r.emitter.OnStateChange(prev, cur, reason)
	}
	r.logger.Debug("state transition",
		log.String("from", prev.String()),
		log.String("to", cur.String()),
		log.String("reason", reason),
	)
}
