package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/spawnpoint/pkg/codes"
	"github.com/bft-labs/spawnpoint/pkg/lifecycle"
	"github.com/bft-labs/spawnpoint/pkg/rotation"
)

const namespace = "spawnpoint"

// Label constants for metrics.
const (
	LabelPhase = "phase"
	LabelFrom  = "from"
	LabelTo    = "to"
	LabelQueue = "queue"
	LabelKind  = "kind"
	LabelCode  = "code"
)

// Metrics provides Prometheus metrics for the lifecycle registry, locked
// rotation queues and the error threshold monitor.
type Metrics struct {
	// Lifecycle
	phase       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	members     prometheus.Gauge

	// Locked rotation queues
	queueAcquired *prometheus.CounterVec
	queueReleased *prometheus.CounterVec
	queueTimeouts *prometheus.CounterVec
	queueHeld     *prometheus.GaugeVec
	queueWait     *prometheus.HistogramVec

	// Error threshold monitor
	occurrences *prometheus.CounterVec
	triggers    *prometheus.CounterVec
}

// New creates and registers metrics.
// If registry is nil, metrics will be created but not registered (useful for testing).
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "phase",
				Help:      "1 for the current lifecycle phase, 0 otherwise",
			},
			[]string{LabelPhase},
		),

		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Total number of lifecycle phase transitions",
			},
			[]string{LabelFrom, LabelTo},
		),

		members: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "members",
				Help:      "Number of registered subsystems",
			},
		),

		queueAcquired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "acquired_total",
				Help:      "Total number of items handed out by locked queues",
			},
			[]string{LabelQueue},
		),

		queueReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "released_total",
				Help:      "Total number of items returned to locked queues",
			},
			[]string{LabelQueue},
		),

		queueTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "timeouts_total",
				Help:      "Total number of lock requests that timed out",
			},
			[]string{LabelQueue},
		),

		queueHeld: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "held",
				Help:      "Number of items currently held",
			},
			[]string{LabelQueue},
		),

		queueWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "wait_duration_seconds",
				Help:      "Time a request waited before an item was free",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{LabelQueue},
		),

		occurrences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codes",
				Name:      "occurrences_total",
				Help:      "Total number of tracked code occurrences",
			},
			[]string{LabelKind, LabelCode},
		),

		triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "codes",
				Name:      "threshold_triggers_total",
				Help:      "Number of times a code crossed a registered limit",
			},
			[]string{LabelKind, LabelCode},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.phase,
			m.transitions,
			m.members,
			m.queueAcquired,
			m.queueReleased,
			m.queueTimeouts,
			m.queueHeld,
			m.queueWait,
			m.occurrences,
			m.triggers,
		)
	}

	return m
}

// ============================================================================
// Lifecycle
// ============================================================================

// OnStateChange records a phase transition.
func (m *Metrics) OnStateChange(previous, current lifecycle.Phase, _ string) {
	if m == nil {
		return
	}
	m.phase.WithLabelValues(previous.String()).Set(0)
	m.phase.WithLabelValues(current.String()).Set(1)
	m.transitions.WithLabelValues(previous.String(), current.String()).Inc()
}

// OnMembersChanged records the registry size.
func (m *Metrics) OnMembersChanged(size int) {
	if m == nil {
		return
	}
	m.members.Set(float64(size))
}

// ============================================================================
// Locked rotation queues
// ============================================================================

// Queue returns an observer that records activity under the queue label name.
func (m *Metrics) Queue(name string) rotation.QueueObserver {
	return queueObserver{m: m, name: name}
}

type queueObserver struct {
	m    *Metrics
	name string
}

func (q queueObserver) OnAcquire(wait time.Duration) {
	if q.m == nil {
		return
	}
	q.m.queueAcquired.WithLabelValues(q.name).Inc()
	q.m.queueHeld.WithLabelValues(q.name).Inc()
	q.m.queueWait.WithLabelValues(q.name).Observe(wait.Seconds())
}

func (q queueObserver) OnRelease() {
	if q.m == nil {
		return
	}
	q.m.queueReleased.WithLabelValues(q.name).Inc()
	q.m.queueHeld.WithLabelValues(q.name).Dec()
}

func (q queueObserver) OnTimeout() {
	if q.m == nil {
		return
	}
	q.m.queueTimeouts.WithLabelValues(q.name).Inc()
}

// ============================================================================
// Error threshold monitor
// ============================================================================

// OnOccurrence records a tracked code occurrence.
func (m *Metrics) OnOccurrence(kind codes.Kind, code string) {
	if m == nil {
		return
	}
	m.occurrences.WithLabelValues(kind.String(), code).Inc()
}

// OnTrigger records a crossed limit.
func (m *Metrics) OnTrigger(kind codes.Kind, code string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(kind.String(), code).Inc()
}
