// Package metrics wraps the solve pipeline's Prometheus instrumentation:
// a private registry, one collector per concern, and nil-receiver-safe
// Observe/Record methods so a metrics-less run (the CLI has no flag to
// disable metrics, but tests construct pipelines without a registry)
// never needs a nil check at the call site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the solve pipeline's Prometheus instrumentation.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	numVariables    prometheus.Gauge
	numConstraints  prometheus.Gauge
	solveSeconds    *prometheus.HistogramVec
	bestObjective   prometheus.Gauge
	solutionsFound  prometheus.Counter
	relaxAttempts   *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// New registers every collector against a fresh, private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	numVariables := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sek_scheduler_num_variables",
		Help: "Number of boolean decision variables in the most recently built model.",
	})
	numConstraints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sek_scheduler_num_constraints",
		Help: "Number of linear constraints in the most recently built model.",
	})
	solveSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sek_scheduler_solve_seconds",
		Help:    "Wall-clock duration of a solve attempt, by final status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	bestObjective := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sek_scheduler_best_objective",
		Help: "Objective value of the best solution found in the most recent solve.",
	})
	solutionsFound := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sek_scheduler_solutions_found_total",
		Help: "Total number of improving solutions found across all solve attempts.",
	})
	relaxAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sek_scheduler_relax_attempts_total",
		Help: "Total diagnostic relaxation attempts, by relaxed constraint family.",
	}, []string{"step"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sek_scheduler_solution_cache_hits_total",
		Help: "Total solution cache hits used to seed an incremental re-solve.",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sek_scheduler_solution_cache_misses_total",
		Help: "Total solution cache misses that forced a cold solve.",
	})

	registry.MustRegister(numVariables, numConstraints, solveSeconds, bestObjective, solutionsFound, relaxAttempts, cacheHits, cacheMisses)

	return &Metrics{
		registry:       registry,
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		numVariables:   numVariables,
		numConstraints: numConstraints,
		solveSeconds:   solveSeconds,
		bestObjective:  bestObjective,
		solutionsFound: solutionsFound,
		relaxAttempts:  relaxAttempts,
		cacheHits:      cacheHits,
		cacheMisses:    cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveModelSize records the variable/constraint counts of a built model.
func (m *Metrics) ObserveModelSize(numVars, numConstraints int) {
	if m == nil {
		return
	}
	m.numVariables.Set(float64(numVars))
	m.numConstraints.Set(float64(numConstraints))
}

// ObserveSolve records one solve attempt's duration, status and best
// objective value.
func (m *Metrics) ObserveSolve(status string, seconds float64, solutionsFound int, bestObjective float64) {
	if m == nil {
		return
	}
	m.solveSeconds.WithLabelValues(status).Observe(seconds)
	m.solutionsFound.Add(float64(solutionsFound))
	m.bestObjective.Set(bestObjective)
}

// RecordRelaxAttempt increments the counter for one diagnostic relax step.
func (m *Metrics) RecordRelaxAttempt(step string) {
	if m == nil {
		return
	}
	m.relaxAttempts.WithLabelValues(step).Inc()
}

// RecordCacheLookup records a solution-cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}
