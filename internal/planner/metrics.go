package planner

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for plan generation.
type Metrics struct {
	PlansTotal        *prometheus.CounterVec
	ModelCallDuration *prometheus.HistogramVec
	TasksPerPlan      prometheus.Histogram
	TasksDropped      prometheus.Counter
	GoalsRedacted     prometheus.Counter
	InvalidRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers the planner metrics once per process.
//
// Metrics:
//   - planner_plans_generated_total{source} - plans returned, by mock, ai or fallback
//   - planner_model_call_duration_seconds{outcome} - model call latency
//   - planner_tasks_per_plan - task count of returned plans
//   - planner_tasks_dropped_total - model tasks rejected by validation
//   - planner_goals_redacted_total - goals that had secrets removed
//   - planner_invalid_requests_total{reason} - rejected requests
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PlansTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "planner_plans_generated_total",
					Help: "Total number of plans returned",
				},
				[]string{"source"},
			),
			ModelCallDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "planner_model_call_duration_seconds",
					Help:    "Duration of language-model calls including retries",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
				},
				[]string{"outcome"},
			),
			TasksPerPlan: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "planner_tasks_per_plan",
					Help:    "Number of tasks in returned plans",
					Buckets: prometheus.LinearBuckets(1, 1, 10),
				},
			),
			TasksDropped: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "planner_tasks_dropped_total",
					Help: "Model tasks rejected for missing or invalid fields",
				},
			),
			GoalsRedacted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "planner_goals_redacted_total",
					Help: "Goals that had secrets redacted before prompting",
				},
			),
			InvalidRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "planner_invalid_requests_total",
					Help: "Plan requests rejected by validation",
				},
				[]string{"reason"},
			),
		}
	})

	return globalMetrics
}

// RecordPlan records a returned plan.
func (m *Metrics) RecordPlan(source Source, tasks int) {
	m.PlansTotal.WithLabelValues(string(source)).Inc()
	m.TasksPerPlan.Observe(float64(tasks))
}

// RecordModelCall records a model call outcome ("ok" or "error").
func (m *Metrics) RecordModelCall(outcome string, seconds float64) {
	m.ModelCallDuration.WithLabelValues(outcome).Observe(seconds)
}
