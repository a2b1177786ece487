package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trips",
			Subsystem: "gate",
			Name:      "rejections_total",
			Help:      "Requests rejected by an admission stage",
		},
		[]string{"stage", "operation"},
	)

	CommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trips",
			Subsystem: "commands",
			Name:      "executed_total",
			Help:      "Commands executed by the dispatcher",
		},
		[]string{"command", "outcome"},
	)

	CommandDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "trips",
			Subsystem:  "commands",
			Name:       "duration_seconds",
			Help:       "Time spent executing commands",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"command"},
	)

	SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trips",
		Subsystem: "seats",
		Name:      "reserved_total",
		Help:      "Seats reserved",
	})

	SeatsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trips",
		Subsystem: "seats",
		Name:      "released_total",
		Help:      "Seats released by cancellations",
	})

	SoldOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trips",
		Subsystem: "seats",
		Name:      "capacity_exceeded_total",
		Help:      "Reservations rejected because the activity was full",
	})

	TicketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trips",
			Subsystem: "tickets",
			Name:      "validations_total",
			Help:      "Ticket validation attempts by outcome",
		},
		[]string{"outcome"},
	)
)
