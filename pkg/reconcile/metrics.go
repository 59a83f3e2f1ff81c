package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for reconciliation runs.
type Metrics struct {
	// policiesProcessed counts processed specs by outcome
	policiesProcessed *prometheus.CounterVec

	// mutations counts intended mutations by operation and mode
	mutations *prometheus.CounterVec

	// oversizeSkips counts specs rejected for exceeding the content budget
	oversizeSkips prometheus.Counter

	// runDuration observes whole-run wall time
	runDuration prometheus.Histogram
}

// NewMetrics creates reconciliation metrics registered with reg. A nil
// registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		policiesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saturn_reconcile_policies_processed_total",
				Help: "Total number of declared policies processed, by outcome",
			},
			[]string{"outcome"},
		),

		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saturn_reconcile_mutations_total",
				Help: "Total number of computed mutations, by operation and mode",
			},
			[]string{"op", "mode"},
		),

		oversizeSkips: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "saturn_reconcile_oversize_skips_total",
				Help: "Total number of policies skipped for exceeding the content size budget",
			},
		),

		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "saturn_reconcile_run_duration_seconds",
				Help:    "Duration of full reconciliation runs",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
	}
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.policiesProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeMutation(op Op, dryRun bool) {
	if m == nil {
		return
	}
	mode := "apply"
	if dryRun {
		mode = "dry-run"
	}
	m.mutations.WithLabelValues(string(op), mode).Inc()
}

func (m *Metrics) observeOversize() {
	if m == nil {
		return
	}
	m.oversizeSkips.Inc()
}

func (m *Metrics) observeRunSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
}
