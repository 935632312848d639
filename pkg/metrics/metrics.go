package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for moderation throughput and audit health
var (
	ModerationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_moderation_actions_total",
			Help: "Moderation actions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	AuditAppendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offer_audit_append_failures_total",
			Help: "Audit appends that failed and were queued for retry",
		},
	)

	AuditEntriesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offer_audit_entries_dropped_total",
			Help: "Audit entries given up on after exhausting retries",
		},
	)

	AuditRetryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "offer_audit_retry_queue_depth",
			Help: "Audit entries waiting for another append attempt",
		},
	)

	EventPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_moderation_event_publish_failures_total",
			Help: "Moderation events that could not be delivered",
		},
		[]string{"sink"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry. Safe
// to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ModerationActionsTotal)
		prometheus.MustRegister(AuditAppendFailuresTotal)
		prometheus.MustRegister(AuditEntriesDroppedTotal)
		prometheus.MustRegister(AuditRetryQueueDepth)
		prometheus.MustRegister(EventPublishFailuresTotal)
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
