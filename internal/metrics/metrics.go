package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks outbound calls per integration (serpapi, calendar, emailjs, ai_worker).
	OutboundRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_requests_total",
			Help: "Total number of outbound integration requests (by integration and result).",
		},
		[]string{"integration", "result"},
	)

	OutboundRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_request_duration_seconds",
			Help:    "Duration of outbound integration requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"integration"},
	)

	// Counts estimator outcomes: ok | no_price | error | empty.
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_estimates_total",
			Help: "Total number of price estimates by result.",
		},
		[]string{"result"},
	)

	EstimateLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_estimate_latency_seconds",
			Help:    "End-to-end latency of price estimates, cache included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"}, // cache | live
	)

	EstimateCacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_estimate_cache_total",
			Help: "Number of estimate cache hits/misses.",
		},
		[]string{"result"}, // hit | miss
	)

	StaleEstimatesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wizard_stale_estimates_discarded_total",
			Help: "Estimate completions dropped because a newer estimate was scheduled.",
		},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_submissions_total",
			Help: "Total number of inquiry submissions by result.",
		},
		[]string{"result"}, // success | error
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Secondary notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages processed.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for integration secrets.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	ActiveDrafts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_active_drafts",
			Help: "Inquiry drafts currently held in memory.",
		},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last completed sweep per job (seconds since epoch).
	LastSweepTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_last_run_timestamp",
			Help: "Timestamp (unix seconds) of the last completed background job run.",
		},
		[]string{"job"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func ObserveOutbound(integration, result string, elapsed time.Duration) {
	OutboundRequestsTotal.WithLabelValues(integration, result).Inc()
	OutboundRequestDuration.WithLabelValues(integration).Observe(elapsed.Seconds())
}

func IncEstimate(result string) {
	EstimatesTotal.WithLabelValues(result).Inc()
}

func IncEstimateCache(result string) {
	EstimateCacheAccess.WithLabelValues(result).Inc()
}

func IncStaleEstimate() {
	StaleEstimatesDiscarded.Inc()
}

func IncSubmission(result string) {
	SubmissionsTotal.WithLabelValues(result).Inc()
}

func IncNotification(channel, result string) {
	NotificationsTotal.WithLabelValues(channel, result).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func SetActiveDrafts(n int) {
	ActiveDrafts.Set(float64(n))
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastSweep(job string, t time.Time) {
	LastSweepTimestamp.WithLabelValues(job).Set(float64(t.Unix()))
}
