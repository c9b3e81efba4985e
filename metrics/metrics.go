package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swiss"

// TournamentMetrics counts tournament lifecycle events. A nil receiver is a
// no-op so callers can run without a registry.
type TournamentMetrics struct {
	setups             prometheus.Counter
	pairingsGenerated  *prometheus.CounterVec
	pairingsExhausted  prometheus.Counter
	pairingsOverridden prometheus.Counter
	roundsCommitted    prometheus.Counter
	completed          prometheus.Counter
	snapshotWrites     *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	snapshotQueue      prometheus.Gauge
}

func NewTournamentMetrics(reg prometheus.Registerer) *TournamentMetrics {
	m := &TournamentMetrics{
		setups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournament_setups_total",
			Help:      "Tournaments set up or restarted.",
		}),
		pairingsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairings_generated_total",
			Help:      "Rounds paired, by pairing strategy.",
		}, []string{"strategy"}),
		pairingsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairings_exhausted_total",
			Help:      "Rounds where the greedy pass left players unpaired.",
		}),
		pairingsOverridden: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairings_overridden_total",
			Help:      "Rounds paired manually by an organizer.",
		}),
		roundsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_committed_total",
			Help:      "Rounds whose results were committed.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_completed_total",
			Help:      "Tournaments that played their final round.",
		}),
		snapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Snapshot writes, by backend and result.",
		}, []string{"backend", "result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Tournaments loaded in memory.",
		}),
		snapshotQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_queue_depth",
			Help:      "Snapshots waiting to be written.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.setups,
			m.pairingsGenerated,
			m.pairingsExhausted,
			m.pairingsOverridden,
			m.roundsCommitted,
			m.completed,
			m.snapshotWrites,
			m.activeSessions,
			m.snapshotQueue,
		)
	}
	return m
}

func (m *TournamentMetrics) TournamentSetup() {
	if m == nil {
		return
	}
	m.setups.Inc()
}

func (m *TournamentMetrics) PairingsGenerated(strategy string) {
	if m == nil {
		return
	}
	m.pairingsGenerated.WithLabelValues(strategy).Inc()
}

func (m *TournamentMetrics) PairingsExhausted() {
	if m == nil {
		return
	}
	m.pairingsExhausted.Inc()
}

func (m *TournamentMetrics) PairingsOverridden() {
	if m == nil {
		return
	}
	m.pairingsOverridden.Inc()
}

func (m *TournamentMetrics) RoundCommitted(completed bool) {
	if m == nil {
		return
	}
	m.roundsCommitted.Inc()
	if completed {
		m.completed.Inc()
	}
}

func (m *TournamentMetrics) SnapshotWrite(backend string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.snapshotWrites.WithLabelValues(backend, result).Inc()
}

func (m *TournamentMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *TournamentMetrics) SetSnapshotQueueDepth(n int) {
	if m == nil {
		return
	}
	m.snapshotQueue.Set(float64(n))
}
