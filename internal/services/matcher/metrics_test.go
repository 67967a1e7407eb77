package matcher

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"plan-eligibility-engine/internal/models"
)

func TestMetrics_ObserveResult(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObserveResult(&MatchingResult{
		TotalPlans: 5,
		Eligible:   make([]models.EligibilityResult, 2),
		Rejections: map[Check]int{CheckState: 2, CheckAge: 1},
	})

	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.PlansEvaluated))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PlansEligible))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Rejections.WithLabelValues(string(CheckState))))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Rejections.WithLabelValues(string(CheckAge))))
}

func TestMetrics_ObserveMatchLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.ObserveMatchLatency(15 * time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "plan_eligibility_match_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilSafe(t *testing.T) {
	var metrics *Metrics

	assert.NotPanics(t, func() {
		metrics.ObserveResult(&MatchingResult{TotalPlans: 1})
		metrics.ObserveMatchLatency(time.Second)
	})
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry()).ObserveResult(nil)
	})
}
