package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the solver diagnostics counters. All methods are safe for
// concurrent use and a nil *Metrics records nothing.
type Metrics struct {
	cutsAdded         *prometheus.CounterVec
	candidates        prometheus.Counter
	callbackDuration  prometheus.Histogram
	coverInequalities *prometheus.CounterVec
	solves            *prometheus.CounterVec
}

// New registers the solver metrics with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cutsAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "endoplan_optimality_cuts_total",
			Help: "Optimality cuts injected by the lazy separator, by product",
		}, []string{"product"}),
		candidates: factory.NewCounter(prometheus.CounterOpts{
			Name: "endoplan_integer_candidates_total",
			Help: "Integer-feasible candidates handed to the lazy separator",
		}),
		callbackDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "endoplan_callback_duration_seconds",
			Help:    "Time spent separating one integer candidate",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		coverInequalities: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "endoplan_cover_inequalities_total",
			Help: "Cover inequalities added to the master before search, by kind",
		}, []string{"kind"}),
		solves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "endoplan_solves_total",
			Help: "Completed master solves by termination status",
		}, []string{"status"}),
	}
}

// CutAdded records one optimality cut for a product
func (m *Metrics) CutAdded(product string) {
	if m == nil {
		return
	}
	m.cutsAdded.WithLabelValues(product).Inc()
}

// CandidateSeparated records one separator invocation and its duration
func (m *Metrics) CandidateSeparated(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.candidates.Inc()
	m.callbackDuration.Observe(elapsed.Seconds())
}

// CoverInequalitiesAdded records n cover inequalities of a kind
func (m *Metrics) CoverInequalitiesAdded(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.coverInequalities.WithLabelValues(kind).Add(float64(n))
}

// SolveCompleted records a finished solve
func (m *Metrics) SolveCompleted(status string) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(status).Inc()
}
