package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bags_reservations_total",
		Help: "Reservation attempts by outcome (OK or error kind).",
	},
		[]string{"result"},
	)

	BagsSoldOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bags_sold_out_total",
		Help: "Total number of reservations that took the last unit of a bag.",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bags_order_transitions_total",
		Help: "Committed order status transitions by target status.",
	},
		[]string{"to"},
	)

	PickupValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bags_pickup_validations_total",
		Help: "Pickup code checks on confirmed orders.",
	},
		[]string{"result"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bags_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation", "kind"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bags_events_published_total",
		Help: "Order events handed to the broker, by topic and result.",
	},
		[]string{"topic", "result"},
	)

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bags_notifications_total",
		Help: "Notifications handled by the notifier, by event type and result.",
	},
		[]string{"event", "result"},
	)
)
