package lifecycle

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/spawnpoint/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu      sync.Mutex
	events  []stateChangeEvent
	members []int
}

type stateChangeEvent struct {
	previous Phase
	current  Phase
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current Phase, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) OnMembersChanged(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, size)
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

// exitRecorder captures exit codes instead of terminating the test binary.
type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func (e *exitRecorder) Codes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int{}, e.codes...)
}

func newTestRegistry(cfg Config) (*Registry, *exitRecorder, *mockEmitter) {
	rec := &exitRecorder{}
	em := &mockEmitter{}
	r := NewRegistry(cfg, log.NewNoopLogger(), WithExitFunc(rec.exit), WithEventEmitter(em))
	return r, rec, em
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "Idle"},
		{PhaseSetup, "Setup"},
		{PhaseRunning, "Running"},
		{PhaseStopping, "Stopping"},
		{PhaseExiting, "Exiting"},
		{Phase(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.phase.String())
	}
}

func TestNewRegistry_Defaults(t *testing.T) {
	r := NewRegistry(Config{}, nil)

	assert.Equal(t, PhaseIdle, r.Phase())
	assert.Equal(t, Status{}, r.Status())
	assert.Equal(t, 3, r.cfg.StopAttempts)
	assert.Equal(t, 15*time.Second, r.cfg.StopTimeout)
	assert.Equal(t, -1, r.ExitCode())
}

func TestRegistry_Setup_RejectsSecondCall(t *testing.T) {
	r, _, em := newTestRegistry(DefaultConfig())

	require.NoError(t, r.Setup())
	err := r.Setup()
	assert.ErrorIs(t, err, ErrAlreadySetup)

	assert.True(t, r.Status().Setup)
	assert.Equal(t, PhaseSetup, r.Phase())
	assert.Len(t, em.Events(), 1)
}

func TestRegistry_Register_Idempotent(t *testing.T) {
	r, rec, _ := newTestRegistry(DefaultConfig())

	r.Register("svc")
	r.Register("svc")
	assert.Equal(t, 1, r.Len())

	r.Deregister("absent")
	assert.Equal(t, []string{"svc"}, r.Members())
	assert.Empty(t, rec.Codes())
}

func TestRegistry_Deregister_ExitsWhenEmptyAndNotRunning(t *testing.T) {
	r, rec, _ := newTestRegistry(DefaultConfig())
	r.Register("svc")

	r.Deregister("svc")

	assert.Equal(t, []int{ExitGraceful}, rec.Codes())
	assert.Equal(t, PhaseExiting, r.Phase())
	select {
	case <-r.Done():
	default:
		t.Fatal("Done() not closed after graceful exit")
	}
}

func TestRegistry_Deregister_KeepsRunning(t *testing.T) {
	r, rec, _ := newTestRegistry(DefaultConfig())
	require.NoError(t, r.Setup())
	r.Register("svc")
	r.Ready()

	r.Deregister("svc")

	assert.Empty(t, rec.Codes())
	assert.Equal(t, PhaseRunning, r.Phase())
}

func TestRegistry_Stop_EmptyRegistryExitsGracefully(t *testing.T) {
	r, rec, em := newTestRegistry(DefaultConfig())
	require.NoError(t, r.Setup())
	r.Ready()

	closed := 0
	r.OnClose(func() { closed++ })
	r.Stop()

	assert.Equal(t, 1, closed)
	assert.Equal(t, []int{ExitGraceful}, rec.Codes())
	assert.Equal(t, ExitGraceful, r.ExitCode())

	events := em.Events()
	require.Len(t, events, 4)
	assert.Equal(t, PhaseStopping, events[2].current)
	assert.Equal(t, PhaseExiting, events[3].current)
}

func TestRegistry_Stop_WaitsForDeregister(t *testing.T) {
	r, rec, _ := newTestRegistry(DefaultConfig())
	require.NoError(t, r.Setup())
	r.Register("db")
	r.Register("http")
	r.Ready()

	r.OnClose(func() { r.Deregister("http") })
	r.Stop()

	status := r.Status()
	assert.False(t, status.Running)
	assert.True(t, status.Stopping)
	assert.Equal(t, PhaseStopping, r.Phase())
	assert.Empty(t, rec.Codes())

	r.Deregister("db")
	assert.Equal(t, []int{ExitGraceful}, rec.Codes())
}

func TestRegistry_Stop_EscalatesAfterAttempts(t *testing.T) {
	const attempts = 3
	r, rec, _ := newTestRegistry(Config{StopAttempts: attempts, StopTimeout: time.Hour})
	require.NoError(t, r.Setup())
	r.Register("stuck")
	r.Ready()

	for i := 0; i < attempts; i++ {
		r.Stop()
		assert.Equal(t, PhaseStopping, r.Phase(), "stop call %d", i+1)
	}
	assert.Empty(t, rec.Codes())
	assert.Equal(t, attempts-1, r.Status().StopAttempts)

	r.Stop()
	assert.Equal(t, PhaseExiting, r.Phase())
	assert.Equal(t, []int{ExitForced}, rec.Codes())
}

func TestRegistry_Exit_ForcedLogsLiveMembers(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapterWithLogger(zerolog.New(&buf))
	rec := &exitRecorder{}
	r := NewRegistry(DefaultConfig(), logger, WithExitFunc(rec.exit))
	require.NoError(t, r.Setup())
	r.Register("http")
	r.Register("db")

	r.Exit(false)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry struct {
			Message string   `json:"message"`
			Members []string `json:"members"`
		}
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry.Message == "exiting with live subsystems" {
			found = true
			assert.Equal(t, []string{"db", "http"}, entry.Members)
		}
	}
	assert.True(t, found, "forced exit did not log live members")
	assert.Equal(t, []int{ExitForced}, rec.Codes())
}

func TestRegistry_Stop_DeadlineForcesExit(t *testing.T) {
	r, rec, _ := newTestRegistry(Config{StopAttempts: 10, StopTimeout: time.Hour})
	require.NoError(t, r.Setup())
	r.Register("stuck")
	r.Ready()

	r.Stop()
	r.StopWithTimeout(20 * time.Millisecond)

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("deadline did not force exit")
	}
	assert.Equal(t, []int{ExitForced}, rec.Codes())
}

func TestRegistry_Stop_DeadlineCanceledByGracefulExit(t *testing.T) {
	r, rec, _ := newTestRegistry(Config{StopAttempts: 10, StopTimeout: 30 * time.Millisecond})
	require.NoError(t, r.Setup())
	r.Register("slow")
	r.Ready()

	r.Stop()
	r.Stop()
	r.Deregister("slow")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []int{ExitGraceful}, rec.Codes())
}

func TestRegistry_Exit_IsTerminal(t *testing.T) {
	r, rec, _ := newTestRegistry(DefaultConfig())

	r.Exit(false)
	r.Exit(true)
	r.Stop()
	r.Register("late")

	assert.Equal(t, []int{ExitForced}, rec.Codes())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ReportFatal(t *testing.T) {
	t.Run("not armed before ready", func(t *testing.T) {
		r, _, _ := newTestRegistry(DefaultConfig())
		assert.False(t, r.ReportFatal(errors.New("boom")))
	})

	t.Run("not armed when disabled", func(t *testing.T) {
		r, _, _ := newTestRegistry(Config{CatchPanics: false})
		r.Ready()
		assert.False(t, r.ReportFatal(errors.New("boom")))
	})

	t.Run("running swallows error", func(t *testing.T) {
		r, rec, _ := newTestRegistry(DefaultConfig())
		r.Ready()
		assert.True(t, r.ReportFatal(errors.New("boom")))
		assert.Equal(t, PhaseRunning, r.Phase())
		assert.Empty(t, rec.Codes())
	})

	t.Run("stopping escalates", func(t *testing.T) {
		r, _, _ := newTestRegistry(Config{StopAttempts: 5, StopTimeout: time.Hour, CatchPanics: true})
		r.Register("svc")
		r.Ready()
		r.Stop()

		assert.True(t, r.ReportFatal(errors.New("boom")))
		assert.Equal(t, 1, r.Status().StopAttempts)
	})
}

func TestRegistry_Recover(t *testing.T) {
	r, _, _ := newTestRegistry(DefaultConfig())
	r.Ready()

	assert.NotPanics(t, func() {
		defer r.Recover()
		panic("worker failed")
	})

	unarmed, _, _ := newTestRegistry(Config{CatchPanics: false})
	assert.Panics(t, func() {
		defer unarmed.Recover()
		panic("worker failed")
	})
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r, _, _ := newTestRegistry(DefaultConfig())
	r.Ready()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("shared")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
}
