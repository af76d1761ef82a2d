// Package metrics declares the Prometheus instruments of the grid engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mgrsgrid_dispatch_submitted_total",
		Help: "Generation requests handed to the worker pool",
	}, []string{"precision"})
	DispatchResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mgrsgrid_dispatch_results_total",
		Help: "Worker results by outcome (ok, error, stale)",
	}, []string{"status"})
	GenerationDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mgrsgrid_generation_duration_ms",
		Help:    "Time to generate one parent boundary in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"precision"})
	GeneratedFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mgrsgrid_generated_features_total",
		Help: "Grid polygons emitted by the generator",
	}, []string{"precision"})
	CellFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mgrsgrid_cell_failures_total",
		Help: "Candidate cells discarded by reason",
	}, []string{"reason"})
	EmptyParentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mgrsgrid_empty_parents_total",
		Help: "Parent boundaries that produced no features",
	})
	RepairRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mgrsgrid_repair_retries_total",
		Help: "Intersections retried after zero-width buffer repair",
	})
	RepairFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mgrsgrid_repair_failures_total",
		Help: "Intersections that still failed after repair",
	})
	CacheEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mgrsgrid_cache_entries",
		Help: "Cache entries by state",
	}, []string{"state"})
	ViewportChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mgrsgrid_viewport_changes_total",
		Help: "Viewport evaluations performed by the controller",
	})
)

func init() {
	prometheus.MustRegister(DispatchSubmittedTotal)
	prometheus.MustRegister(DispatchResultsTotal)
	prometheus.MustRegister(GenerationDurationMs)
	prometheus.MustRegister(GeneratedFeaturesTotal)
	prometheus.MustRegister(CellFailuresTotal)
	prometheus.MustRegister(EmptyParentsTotal)
	prometheus.MustRegister(RepairRetriesTotal)
	prometheus.MustRegister(RepairFailuresTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(ViewportChangesTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
