package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Buckets for cascade processing duration (1ms to 30s).
	durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	// CommandsProcessed counts commands dispatched through the message bus,
	// by command name and outcome.
	CommandsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_commands_processed_total",
			Help: "Total number of commands processed by the message bus, by command and success status.",
		},
		[]string{"command", "success"},
	)

	// DeliveryAttempts counts individual delivery attempts against the
	// email provider, by notification type and outcome.
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Total number of delivery attempts against the email provider, by notification type and success status.",
		},
		[]string{"type", "success"},
	)

	// NotificationsSent counts notifications that reached the terminal sent state.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of notifications that reached the sent state, by notification type.",
		},
		[]string{"type"},
	)

	// NotificationsExhausted counts notifications whose retry budget ran out.
	NotificationsExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_retries_exhausted_total",
			Help: "Total number of notifications that exhausted their retry budget, by notification type.",
		},
		[]string{"type"},
	)

	// PreferenceBlocked counts sends suppressed by the preference gate.
	PreferenceBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_preference_blocked_total",
			Help: "Total number of send commands suppressed by user preferences, by notification type.",
		},
		[]string{"type"},
	)

	// EventsPublished counts outgoing domain events pushed to the broker.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_published_total",
			Help: "Total number of domain events published to external services, by event and success status.",
		},
		[]string{"event", "success"},
	)

	// HTTPRequestsTotal counts REST requests by endpoint and status text.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_http_requests_total",
			Help: "Total number of HTTP requests, by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration measures REST request handling time.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_http_request_duration_seconds",
			Help:    "Histogram of HTTP request duration in seconds, by endpoint.",
			Buckets: durationBuckets,
		},
		[]string{"endpoint"},
	)

	// MessagesReceived counts inbound broker messages by message name.
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_broker_messages_received_total",
			Help: "Total number of messages fetched from the broker, by message name.",
		},
		[]string{"message"},
	)

	// MessagesRedelivered counts messages republished for another attempt.
	MessagesRedelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_broker_messages_redelivered_total",
			Help: "Total number of messages republished to the command topic after a processing failure, by message name.",
		},
		[]string{"message"},
	)

	// MessagesDLQ counts messages moved to the dead letter topic.
	MessagesDLQ = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_broker_messages_dlq_total",
			Help: "Total number of messages moved to the dead letter topic, by message name.",
		},
		[]string{"message"},
	)

	// CascadeDuration measures end-to-end cascade processing time.
	CascadeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_cascade_duration_seconds",
			Help:    "Histogram of full cascade processing duration in seconds, by inbound message name.",
			Buckets: durationBuckets,
		},
		[]string{"message"},
	)
)

// MetricsHandler returns the HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveCascade records one cascade's duration.
func ObserveCascade(message string, start time.Time) {
	CascadeDuration.WithLabelValues(message).Observe(time.Since(start).Seconds())
}

// CommandProcessed records one command dispatch outcome.
func CommandProcessed(command string, success bool) {
	CommandsProcessed.WithLabelValues(command, strconv.FormatBool(success)).Inc()
}
