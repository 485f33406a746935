// Package metrics exposes Prometheus counters for the storage layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations counts every logical storage operation by backend and outcome.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_storage_operations_total",
			Help: "Storage operations by operation name, backend and outcome.",
		},
		[]string{"operation", "backend", "outcome"},
	)

	// Fallbacks counts remote failures that were retried against local storage.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_storage_fallbacks_total",
			Help: "Remote operations that fell back to local storage.",
		},
		[]string{"operation"},
	)
)

// ObserveOperation records one completed operation attempt.
func ObserveOperation(operation, backend string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Operations.WithLabelValues(operation, backend, outcome).Inc()
}

// ObserveFallback records one remote-to-local fallback.
func ObserveFallback(operation string) {
	Fallbacks.WithLabelValues(operation).Inc()
}
