package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/spawnpoint/pkg/codes"
	"github.com/bft-labs/spawnpoint/pkg/log"
)

// DefaultReset is the balance a triggered rule restarts from.
const DefaultReset = 1

// Callback is invoked once each time a rule's threshold is crossed.
type Callback func(Snapshot)

// Snapshot merges the global occurrence stats of a code with the state of
// the rule that triggered.
type Snapshot struct {
	Kind        codes.Kind
	Code        string
	RuleID      string
	Occurrences int
	FirstSeen   time.Time
	LastSeen    time.Time
	Balance     int
	Triggered   bool
	TriggeredAt []time.Time
}

// Rule is a registered limit on one (kind, code) pair.
type Rule struct {
	ID        string
	Code      string
	Kind      codes.Kind
	Threshold int
	Decay     time.Duration
	Reset     int
	Callback  Callback
}

// RuleOption configures a Rule.
type RuleOption func(*Rule)

// WithKind watches kind instead of codes.KindErrorCode.
func WithKind(kind codes.Kind) RuleOption {
	return func(r *Rule) {
		r.Kind = kind
	}
}

// WithDecay removes each occurrence from the rule's balance after d.
func WithDecay(d time.Duration) RuleOption {
	return func(r *Rule) {
		r.Decay = d
	}
}

// WithReset sets the balance a triggered rule restarts from on the next
// occurrence. A negative value keeps the rule triggered until it decays to
// zero.
func WithReset(n int) RuleOption {
	return func(r *Rule) {
		r.Reset = n
	}
}

// Observer receives monitor activity, typically for metrics.
type Observer interface {
	OnOccurrence(kind codes.Kind, code string)
	OnTrigger(kind codes.Kind, code string)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithObserver sets the receiver of occurrence and trigger events.
func WithObserver(o Observer) Option {
	return func(m *Monitor) {
		if o != nil {
			m.observer = o
		}
	}
}

type key struct {
	kind codes.Kind
	code string
}

type globalStats struct {
	occurrences int
	firstSeen   time.Time
	lastSeen    time.Time
}

type ruleState struct {
	rule        Rule
	balance     int
	triggered   bool
	triggeredAt []time.Time
}

// Stats is the global occurrence record of one (kind, code) pair.
type Stats struct {
	Occurrences int
	FirstSeen   time.Time
	LastSeen    time.Time
}

// Monitor counts code occurrences and fires rule callbacks when thresholds
// are crossed. It keeps no state until Enable is called.
type Monitor struct {
	mu       sync.Mutex
	enabled  bool
	closed   bool
	rules    map[key][]*ruleState
	global   map[key]*globalStats
	timers   map[*time.Timer]struct{}
	logger   log.Logger
	observer Observer
	now      func() time.Time
}

// New creates a disabled Monitor.
func New(logger log.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		rules:    make(map[key][]*ruleState),
		global:   make(map[key]*globalStats),
		timers:   make(map[*time.Timer]struct{}),
		logger:   log.OrNoop(logger),
		observer: noopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enable starts tracking occurrences.
func (m *Monitor) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// Enabled reports whether occurrences are tracked.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// RegisterLimit adds a rule that calls cb once code has occurred threshold
// times. It returns the rule ID. Rules may be registered while disabled.
func (m *Monitor) RegisterLimit(code string, threshold int, cb Callback, opts ...RuleOption) string {
	r := Rule{
		ID:        uuid.NewString(),
		Code:      code,
		Kind:      codes.KindErrorCode,
		Threshold: threshold,
		Reset:     DefaultReset,
		Callback:  cb,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.Threshold < 1 {
		r.Threshold = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{kind: r.Kind, code: r.Code}
	m.rules[k] = append(m.rules[k], &ruleState{rule: r})
	return r.ID
}

// Rules returns the rules registered for kind and code.
func (m *Monitor) Rules(kind codes.Kind, code string) []Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := m.rules[key{kind: kind, code: code}]
	out := make([]Rule, len(states))
	for i, s := range states {
		out[i] = s.rule
	}
	return out
}

// Attach subscribes the monitor to every code raised by f. The returned
// function detaches it.
func (m *Monitor) Attach(f *codes.Factory) func() {
	return f.Subscribe(func(ev codes.Event) {
		m.Observe(ev.Kind, ev.Code.Code)
	})
}

// Observe records one occurrence of code. It does nothing while the
// monitor is disabled or closed.
func (m *Monitor) Observe(kind codes.Kind, code string) {
	type firing struct {
		cb   Callback
		snap Snapshot
	}

	m.mu.Lock()
	if !m.enabled || m.closed {
		m.mu.Unlock()
		return
	}
	k := key{kind: kind, code: code}
	now := m.now()

	g, ok := m.global[k]
	if !ok {
		g = &globalStats{firstSeen: now}
		m.global[k] = g
	}
	g.occurrences++
	g.lastSeen = now

	var (
		fire     []firing
		triggers int
	)
	for _, s := range m.rules[k] {
		s.balance++
		if s.rule.Decay > 0 {
			m.scheduleDecay(s)
		}

		switch {
		case !s.triggered && s.balance >= s.rule.Threshold:
			s.triggered = true
			snap := m.snapshot(k, g, s)
			snap.Triggered = true
			s.triggeredAt = append(s.triggeredAt, now)
			if s.rule.Callback != nil {
				fire = append(fire, firing{cb: s.rule.Callback, snap: snap})
			}
			m.logger.Warn("error threshold reached",
				log.String("kind", kind.String()),
				log.String("code", code),
				log.Int("threshold", s.rule.Threshold),
				log.String("rule", s.rule.ID),
				log.Time("first_seen", g.firstSeen),
			)
			triggers++
		case s.triggered && s.rule.Reset >= 0:
			s.triggered = false
			s.balance = s.rule.Reset
		}
	}
	m.mu.Unlock()

	m.observer.OnOccurrence(kind, code)
	for range triggers {
		m.observer.OnTrigger(kind, code)
	}
	for _, f := range fire {
		f.cb(f.snap)
	}
}

// scheduleDecay must be called with mu held.
func (m *Monitor) scheduleDecay(s *ruleState) {
	var t *time.Timer
	t = time.AfterFunc(s.rule.Decay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, t)
		if m.closed {
			return
		}
		s.balance--
		if s.balance <= 0 {
			s.balance = 0
			s.triggered = false
		}
	})
	m.timers[t] = struct{}{}
}

// snapshot must be called with mu held.
func (m *Monitor) snapshot(k key, g *globalStats, s *ruleState) Snapshot {
	return Snapshot{
		Kind:        k.kind,
		Code:        k.code,
		RuleID:      s.rule.ID,
		Occurrences: g.occurrences,
		FirstSeen:   g.firstSeen,
		LastSeen:    g.lastSeen,
		Balance:     s.balance,
		Triggered:   s.triggered,
		TriggeredAt: append([]time.Time(nil), s.triggeredAt...),
	}
}

// Stats returns the global record for kind and code.
func (m *Monitor) Stats(kind codes.Kind, code string) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.global[key{kind: kind, code: code}]
	if !ok {
		return Stats{}, false
	}
	return Stats{Occurrences: g.occurrences, FirstSeen: g.firstSeen, LastSeen: g.lastSeen}, true
}

// Rule returns the current state of the rule with id.
func (m *Monitor) Rule(id string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, states := range m.rules {
		for _, s := range states {
			if s.rule.ID != id {
				continue
			}
			g := m.global[k]
			if g == nil {
				g = &globalStats{}
			}
			return m.snapshot(k, g, s), true
		}
	}
	return Snapshot{}, false
}

// Close stops pending decay timers and stops tracking.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for t := range m.timers {
		t.Stop()
	}
	clear(m.timers)
}

type noopObserver struct{}

func (noopObserver) OnOccurrence(codes.Kind, string) {}
func (noopObserver) OnTrigger(codes.Kind, string)    {}
