// Package observability provides Prometheus metrics for the simulation engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid; every Record method is a no-op on nil.
type Metrics struct {
	registry *prometheus.Registry

	// Simulation metrics
	SimulationsTotal    *prometheus.CounterVec
	HistoriesSimulated  prometheus.Counter
	HistoriesDepleted   prometheus.Counter
	SimulationDuration  prometheus.Histogram
	LastDepletionRisk   prometheus.Gauge
	LastDepletionStdErr prometheus.Gauge

	// Solver metrics
	SolverAttempts      prometheus.Counter
	BracketFailures     prometheus.Counter
	SolvesTotal         *prometheus.CounterVec
	SolveDuration       prometheus.Histogram
	LastRequiredSavings prometheus.Gauge

	// Sweep metrics
	SweepPoints *prometheus.CounterVec

	// Job metrics
	JobRunsTotal      *prometheus.CounterVec
	LastSuccessfulJob *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "retirerisk"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SimulationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "runs_total",
			Help:      "Total number of Monte Carlo runs by status",
		}, []string{"status"}),
		HistoriesSimulated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "histories_total",
			Help:      "Total number of simulated lives",
		}),
		HistoriesDepleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "histories_depleted_total",
			Help:      "Total number of simulated lives that ran out of money",
		}),
		SimulationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "run_duration_seconds",
			Help:      "Monte Carlo run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		LastDepletionRisk: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "last_depletion_probability",
			Help:      "Depletion probability of the most recent run",
		}),
		LastDepletionStdErr: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "last_depletion_standard_error",
			Help:      "Standard error of the most recent depletion probability",
		}),

		SolverAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "attempts_total",
			Help:      "Total number of bracketed root-find attempts",
		}),
		BracketFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "bracket_failures_total",
			Help:      "Total number of attempts whose interval did not bracket a root",
		}),
		SolvesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "solves_total",
			Help:      "Total number of savings solves by status",
		}, []string{"status"}),
		SolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "solve_duration_seconds",
			Help:      "Savings solve duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		LastRequiredSavings: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "last_required_savings",
			Help:      "Required starting assets found by the most recent solve",
		}),

		SweepPoints: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensitivity",
			Name:      "points_total",
			Help:      "Total number of sweep points solved by factor",
		}, []string{"factor"}),

		JobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),
		LastSuccessfulJob: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful run by job",
		}, []string{"job"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSimulation records a finished Monte Carlo run.
func (m *Metrics) RecordSimulation(histories, depleted int, p, stderr float64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.SimulationsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	m.HistoriesSimulated.Add(float64(histories))
	m.HistoriesDepleted.Add(float64(depleted))
	m.SimulationDuration.Observe(elapsed.Seconds())
	m.LastDepletionRisk.Set(p)
	m.LastDepletionStdErr.Set(stderr)
}

// RecordAttempt records one bracketed root-find attempt.
func (m *Metrics) RecordAttempt(bracketed bool) {
	if m == nil {
		return
	}
	m.SolverAttempts.Inc()
	if !bracketed {
		m.BracketFailures.Inc()
	}
}

// RecordSolve records a finished savings solve.
func (m *Metrics) RecordSolve(savings float64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.SolvesTotal.WithLabelValues(status(err)).Inc()
	m.SolveDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.LastRequiredSavings.Set(savings)
	}
}

// RecordSweepPoint records one solved sweep point.
func (m *Metrics) RecordSweepPoint(factor string) {
	if m == nil {
		return
	}
	m.SweepPoints.WithLabelValues(factor).Inc()
}

// RecordJob records a scheduled job run.
func (m *Metrics) RecordJob(job string, err error) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, status(err)).Inc()
	if err == nil {
		m.LastSuccessfulJob.WithLabelValues(job).SetToCurrentTime()
	}
}
