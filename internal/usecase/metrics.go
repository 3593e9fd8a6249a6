package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeApplied    = "applied"
	outcomeNotAllowed = "not_allowed"
	outcomeInFlight   = "in_flight"
	outcomeRejected   = "rejected"
	outcomeTimeout    = "timeout"
	outcomeFailed     = "failed"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order transition attempts by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	transitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_transition_duration_seconds",
			Help:    "Duration of the backend call of an order transition",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	exportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_export_rows_total",
			Help: "Rows written to order spreadsheet exports",
		},
	)

	chatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat assistant requests by result",
		},
		[]string{"result"},
	)
)
