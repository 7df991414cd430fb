package introspect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	introspectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_introspection_duration_seconds",
			Help:    "Time taken to list and enrich namespaces",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	introspectionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_introspection_total",
			Help: "Total number of introspection attempts",
		},
		[]string{"status"}, // success or error
	)

	subqueryDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_introspection_subquery_degraded_total",
			Help: "Best-effort sub-queries that failed and were omitted from the result",
		},
		[]string{"kind"}, // quotas, pods, services, nodes, version, namespaces
	)
)
