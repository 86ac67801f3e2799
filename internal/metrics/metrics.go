package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook intake metrics
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookline_webhooks_total",
			Help: "Total number of webhook requests received, by outcome",
		},
		[]string{"outcome"},
	)

	WebhookBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookline_webhook_bytes_total",
			Help: "Total bytes of webhook body data received",
		},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookline_events_total",
			Help: "Total number of webhook events processed, by delivery status",
		},
		[]string{"status"},
	)

	// Notification delivery metrics
	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hookline_delivery_duration_seconds",
			Help:    "Duration of notification channel deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeliveryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookline_delivery_errors_total",
			Help: "Total number of failed notification deliveries",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookline_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"client"},
	)
)
