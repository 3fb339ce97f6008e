package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operations counts workflow calls by operation and outcome so the
// dashboards can watch desk throughput and failure rates.
var Operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hospitality_operations_total",
	Help: "Workflow operations by operation and outcome.",
}, []string{"operation", "outcome"})

// ObserveOperation records one workflow call.
func ObserveOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	Operations.WithLabelValues(operation, outcome).Inc()
}
