package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agent_operations_total",
		Help: "Total number of dispatched agent operations",
	},
	[]string{"operation", "outcome"}, // outcome: success, invalid_input, error
)
