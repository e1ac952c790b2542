// Package metrics exports run counters in the Prometheus text format for the
// node-exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"parsersmith/internal/retry"
	"parsersmith/internal/usage"
)

const namespace = "parsersmith"

// Metrics holds the collectors of one process.
type Metrics struct {
	reg      *prometheus.Registry
	attempts *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	tokens   *prometheus.CounterVec
	verified *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Synthesis attempts by the stage they ended at and their result.",
		}, []string{"stage", "result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Synthesis runs by final state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of one attempt.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Provider tokens by direction.",
		}, []string{"direction"}),
		verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Offline verifications by status.",
		}, []string{"status"}),
	}
	m.reg.MustRegister(m.attempts, m.runs, m.duration, m.tokens, m.verified)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveAttempt records a finished attempt. It matches retry.Observer.
func (m *Metrics) ObserveAttempt(a retry.Attempt) {
	result := "failed"
	if a.Passed() {
		result = "passed"
	}
	m.attempts.WithLabelValues(string(a.Stage), result).Inc()
	m.duration.Observe(a.Duration.Seconds())
}

// ObserveRun records the final state of a run.
func (m *Metrics) ObserveRun(o retry.Outcome) {
	m.runs.WithLabelValues(o.State.String()).Inc()
}

// ObserveUsage adds a run's token totals.
func (m *Metrics) ObserveUsage(s usage.AggregatedStats) {
	m.tokens.WithLabelValues("input").Add(float64(s.Total.Input))
	m.tokens.WithLabelValues("output").Add(float64(s.Total.Output))
}

// ObserveVerification records one offline verification status.
func (m *Metrics) ObserveVerification(status string) {
	m.verified.WithLabelValues(status).Inc()
}

// WriteTextfile writes every collector to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
