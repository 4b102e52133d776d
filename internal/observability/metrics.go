package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boleia"

var (
	SeatOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "seat_operations_total", Help: "Seat reserve/release calls by outcome"},
		[]string{"operation", "outcome"},
	)
	SeatOperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seat_operation_duration_seconds",
			Help:      "Seat reserve/release latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SearchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Ride search latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of rides returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50},
		},
		[]string{"kind"},
	)
	MatchTags = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "match_tags_total", Help: "Ranked results by compatibility tag"},
		[]string{"tag"},
	)
	ClassifierMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "region_classifier_defaults_total", Help: "Location texts resolved to the default region",
	})

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_transitions_total", Help: "Booking status changes"},
		[]string{"status"},
	)
	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "event_publish_errors_total", Help: "Seat change publish failures"},
		[]string{"sink"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
