package registration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registrationTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agent_registration_total",
		Help: "Total number of registration attempts against the backend",
	},
	[]string{"status"}, // success, rejected, transport_error
)
