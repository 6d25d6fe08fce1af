package backend

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "turnsearch",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests to the search backend",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turnsearch",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Requests to the search backend by outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(requestsTotal)
}
