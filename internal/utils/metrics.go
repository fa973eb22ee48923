package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_failed_total",
		Help: "Total number of rejected reservation requests",
	}, []string{"reason"})

	ReservationsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_cancelled_total",
		Help: "Total number of cancelled reservations",
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total number of payments marked as paid",
	})

	CardVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_verifications_total",
		Help: "Total number of card verification attempts",
	}, []string{"result"})

	CardAuthorizationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "card_authorization_latency_seconds",
		Help:    "Latency of provider authorization round trips",
		Buckets: prometheus.DefBuckets,
	})
)
