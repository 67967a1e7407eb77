package matcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for plan matching.
type Metrics struct {
	// Plans run through the engine
	PlansEvaluated prometheus.Counter

	// Plans that passed every check
	PlansEligible prometheus.Counter

	// Rejections by the check that failed
	Rejections *prometheus.CounterVec

	// Per-client matching latency, catalog load included
	MatchLatency prometheus.Histogram
}

// NewMetrics creates matcher metrics registered with reg.
// A nil reg registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PlansEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "plan_eligibility_plans_evaluated_total",
			Help: "Total plans evaluated against a client profile",
		}),

		PlansEligible: factory.NewCounter(prometheus.CounterOpts{
			Name: "plan_eligibility_plans_eligible_total",
			Help: "Total plans found eligible for a client profile",
		}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plan_eligibility_rejections_total",
			Help: "Total plan rejections by failing check",
		}, []string{"check"}),

		MatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plan_eligibility_match_duration_seconds",
			Help:    "Duration of matching one client profile against the catalog",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveResult records the outcome of one client match.
func (m *Metrics) ObserveResult(result *MatchingResult) {
	if m == nil || result == nil {
		return
	}
	m.PlansEvaluated.Add(float64(result.TotalPlans))
	m.PlansEligible.Add(float64(len(result.Eligible)))
	for check, count := range result.Rejections {
		m.Rejections.WithLabelValues(string(check)).Add(float64(count))
	}
}

// ObserveMatchLatency records how long one client match took.
func (m *Metrics) ObserveMatchLatency(d time.Duration) {
	if m != nil {
		m.MatchLatency.Observe(d.Seconds())
	}
}
