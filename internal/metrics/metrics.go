// Package metrics holds the Prometheus collectors for ingestion runs, intake
// outcomes and upstream breakers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the application collectors. A nil *Metrics is a no-op.
type Metrics struct {
	// Stage latency by stage name
	StageDuration *prometheus.HistogramVec

	// Stage outcomes by stage and outcome ("ok" / "error")
	StageOutcome *prometheus.CounterVec

	// Whole pipeline runs by outcome
	RunOutcome *prometheus.CounterVec

	// Intake results by mode and kind ("created", "pending", "rejected")
	IntakeOutcome *prometheus.CounterVec

	// Breaker state per upstream service (0 closed, 1 open, 2 half-open)
	BreakerState *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rumoo_pipeline_stage_duration_seconds",
			Help:    "Duration of ingestion pipeline stages",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),

		StageOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rumoo_pipeline_stage_total",
			Help: "Ingestion pipeline stage completions by outcome",
		}, []string{"stage", "outcome"}),

		RunOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rumoo_pipeline_runs_total",
			Help: "Ingestion pipeline runs by outcome",
		}, []string{"outcome"}),

		IntakeOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rumoo_intake_requests_total",
			Help: "Intake requests by mode and result",
		}, []string{"mode", "result"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rumoo_upstream_breaker_state",
			Help: "Circuit breaker state per upstream service (0 closed, 1 open, 2 half-open)",
		}, []string{"service"}),
	}
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	m.StageOutcome.WithLabelValues(stage, outcome(err)).Inc()
}

// ObserveRun records a finished pipeline run.
func (m *Metrics) ObserveRun(err error) {
	if m != nil {
		m.RunOutcome.WithLabelValues(outcome(err)).Inc()
	}
}

// ObserveIntake records an intake request result.
func (m *Metrics) ObserveIntake(mode, result string) {
	if m != nil {
		m.IntakeOutcome.WithLabelValues(mode, result).Inc()
	}
}

// SetBreakerState records a breaker transition. state follows the gauge
// encoding documented on BreakerState.
func (m *Metrics) SetBreakerState(service string, state float64) {
	if m != nil {
		m.BreakerState.WithLabelValues(service).Set(state)
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
