// Package metrics defines the Prometheus instrumentation for the email
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	InboundReceived  prometheus.Counter
	InboundRejected  prometheus.Counter
	InboundFailed    prometheus.Counter
	QuotaRejections  prometheus.Counter
	AIReplies        prometheus.Counter
	AIFailures       prometheus.Counter
	SendSuccesses    prometheus.Counter
	SendFailures     prometheus.Counter
	PollCycles       prometheus.Counter
	PollSkippedDupes prometheus.Counter
	ProcessingTime   prometheus.Histogram
}

// New registers pipeline metrics with the given registerer. Tests pass a
// fresh prometheus.NewRegistry; the server passes the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InboundReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_inbound_emails_total",
			Help: "Total number of inbound emails accepted by the webhook",
		}),
		InboundRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_inbound_rejected_total",
			Help: "Total number of inbound requests rejected at ingress (auth/validation)",
		}),
		InboundFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_inbound_failed_total",
			Help: "Total number of inbound emails that failed pipeline processing",
		}),
		QuotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_quota_rejections_total",
			Help: "Total number of inbound emails rejected because the owner quota was exhausted",
		}),
		AIReplies: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_ai_replies_total",
			Help: "Total number of AI reply drafts persisted",
		}),
		AIFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_ai_failures_total",
			Help: "Total number of failed AI completion attempts",
		}),
		SendSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_send_successes_total",
			Help: "Total number of successful outbound dispatches",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_send_failures_total",
			Help: "Total number of failed outbound dispatches",
		}),
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_poll_cycles_total",
			Help: "Total number of Gmail polling cycles",
		}),
		PollSkippedDupes: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasedesk_poll_skipped_duplicates_total",
			Help: "Total number of polled messages skipped by the processed-emails dedup check",
		}),
		ProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leasedesk_processing_duration_seconds",
			Help:    "Time spent processing one inbound email end to end",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
