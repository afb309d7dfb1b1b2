package httpserver

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthdayparty",
			Subsystem: "server",
			Name:      "submit_work_requests_total",
			Help:      "Total number of /submit_work requests, by outcome.",
		},
		[]string{"outcome"})

	dpsAcceptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birthdayparty",
			Subsystem: "server",
			Name:      "dps_accepted_total",
			Help:      "Total number of distinguished points accepted by /submit_work, new dps and pre-collisions alike.",
		})

	collisionsDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birthdayparty",
			Subsystem: "server",
			Name:      "collisions_detected_total",
			Help:      "Total number of pre-collisions detected.",
		})
)

func registerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(submissionsTotal, dpsAcceptedTotal, collisionsDetectedTotal)
	})
}
