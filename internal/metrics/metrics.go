// Package metrics provides Prometheus metrics for the reservation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels stay low-cardinality: no booking, room or user ids.
var (
	// BookingsCreatedTotal counts bookings that reached PENDING.
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bullroom_bookings_created_total",
		Help: "Total number of bookings created in PENDING state.",
	})

	// BookingConflictsTotal counts rejected creations by the stage that detected the conflict.
	BookingConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullroom_booking_conflicts_total",
		Help: "Total number of booking creations rejected as conflicts, by stage (hold|durable).",
	}, []string{"stage"})

	// BookingTransitionsTotal counts lifecycle transitions by target status.
	BookingTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullroom_booking_transitions_total",
		Help: "Total number of booking transitions, by target status.",
	}, []string{"to"})

	// StoreUnavailableTotal counts operations that gave up on an unreachable store.
	StoreUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullroom_store_unavailable_total",
		Help: "Total number of operations failed with an unavailable store, by operation.",
	}, []string{"op"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullroom_events_published_total",
		Help: "Total number of room update publications, by result (ok|error).",
	}, []string{"result"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullroom_notifications_total",
		Help: "Total number of notification queue operations, by result (enqueued|enqueue_error|delivered|failed).",
	}, []string{"result"})

	FanoutSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bullroom_fanout_subscribers",
		Help: "Number of connected real-time observers.",
	})

	// FanoutDroppedTotal counts events dropped because an observer buffer was full.
	FanoutDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bullroom_fanout_dropped_total",
		Help: "Total number of room updates dropped for slow observers.",
	})

	SweeperExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bullroom_sweeper_expired_total",
		Help: "Total number of PENDING bookings expired by the reconciliation sweep.",
	})
)

const (
	StageHold    = "hold"
	StageDurable = "durable"

	ResultOK    = "ok"
	ResultError = "error"

	NotifyEnqueued     = "enqueued"
	NotifyEnqueueError = "enqueue_error"
	NotifyDelivered    = "delivered"
	NotifyFailed       = "failed"
)
