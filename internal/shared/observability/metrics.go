package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overrides_queries_total",
		Help: "Total number of override resolution queries by operation and outcome.",
	}, []string{"operation", "outcome"})

	TypesVisited = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overrides_types_visited",
		Help:    "Number of distinct types visited by one hierarchy traversal.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	ModelErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overrides_model_errors_total",
		Help: "Total number of hierarchy provider failures surfaced to callers.",
	}, []string{"operation"})

	IndexFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overrides_index_files_total",
		Help: "Total number of source files seen by the indexer by status.",
	}, []string{"status"})

	IndexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overrides_index_seconds",
		Help:    "Time spent building a hierarchy snapshot from sources.",
		Buckets: prometheus.DefBuckets,
	})

	IndexedTypes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overrides_indexed_types",
		Help: "Number of declared types in the active hierarchy snapshot.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overrides_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// Outcome labels for QueriesTotal.
const (
	OutcomeFound      = "found"
	OutcomeNone       = "none"
	OutcomeError      = "error"
	OutcomeIneligible = "ineligible"
)
