package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tripmarket"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	DiscoveryResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "discovery_results",
		Help:      "Number of offerings matched per discovery request, before pagination.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"kind", "mode"})

	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Booking attempts by offering kind and outcome.",
	}, []string{"kind", "outcome"})

	BookingCancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_cancellations_total",
		Help:      "Cancelled bookings by offering kind.",
	}, []string{"kind"})

	WalletDebited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_debited_total",
		Help:      "Total currency units debited from rider wallets.",
	})

	PointsAccrued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loyalty_points_accrued_total",
		Help:      "Loyalty points earned, by badge held at booking time.",
	}, []string{"badge"})

	PointsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loyalty_points_redeemed_total",
		Help:      "Loyalty points converted to wallet credit.",
	})

	KafkaMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kafka_messages_total",
		Help:      "Kafka messages by direction (publish, consume) and status.",
	}, []string{"direction", "status"})

	KafkaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "kafka_operation_duration_seconds",
		Help:      "Kafka publish and handle latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"direction"})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_reminders_sent_total",
		Help:      "Booking reminders emitted by the reminders job.",
	})
)

const (
	OutcomeCreated           = "created"
	OutcomeInvalid           = "invalid"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeFailed            = "failed"
)
