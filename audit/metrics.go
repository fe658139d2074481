package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the audit engine.
type Metrics struct {
	Registry          *prometheus.Registry
	RunsTotal         *prometheus.CounterVec
	PhaseDuration     *prometheus.HistogramVec
	PhasesTotal       *prometheus.CounterVec
	IssuesTotal       prometheus.Counter
	ComparisonsTotal  prometheus.Counter
	ComparisonsPruned prometheus.Counter
	ClassifierRetries prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_runs_total",
			Help: "Total audit runs by terminal status.",
		},
		[]string{"status"},
	)
	phaseDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_phase_duration_seconds",
			Help:    "Wall time per scored phase.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	phases := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_phases_total",
			Help: "Phase executions by phase and outcome.",
		},
		[]string{"phase", "status"},
	)
	issues := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_issues_total",
			Help: "Total issues produced across all runs.",
		},
	)
	comparisons := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_overlap_comparisons_total",
			Help: "Pairwise signature comparisons performed.",
		},
	)
	pruned := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_overlap_comparisons_pruned_total",
			Help: "Pairwise comparisons avoided by entity blocking.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_classifier_retries_total",
			Help: "Retry attempts against the classification collaborator.",
		},
	)

	registry.MustRegister(runs, phaseDuration, phases, issues, comparisons, pruned, retries)

	return &Metrics{
		Registry:          registry,
		RunsTotal:         runs,
		PhaseDuration:     phaseDuration,
		PhasesTotal:       phases,
		IssuesTotal:       issues,
		ComparisonsTotal:  comparisons,
		ComparisonsPruned: pruned,
		ClassifierRetries: retries,
	}
}

// IncRun increments the run counter for a terminal status.
func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// ObservePhase records one phase execution.
func (m *Metrics) ObservePhase(phase, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	m.PhasesTotal.WithLabelValues(phase, status).Inc()
}

// AddIssues adds to the issue counter.
func (m *Metrics) AddIssues(n int) {
	if m == nil {
		return
	}
	m.IssuesTotal.Add(float64(n))
}

// AddComparisons records detector comparison volume.
func (m *Metrics) AddComparisons(performed, pruned int64) {
	if m == nil {
		return
	}
	m.ComparisonsTotal.Add(float64(performed))
	if pruned > 0 {
		m.ComparisonsPruned.Add(float64(pruned))
	}
}

// IncClassifierRetry increments the classifier retry counter.
func (m *Metrics) IncClassifierRetry() {
	if m == nil {
		return
	}
	m.ClassifierRetries.Inc()
}
