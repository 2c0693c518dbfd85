package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	lifecycleOpsTotal     *prometheus.CounterVec
	lifecycleRejectsTotal *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
	statisticsCacheTotal  *prometheus.CounterVec
	attachmentRequests    *prometheus.CounterVec
	attachmentRejected    *prometheus.CounterVec
	attachmentLatency     prometheus.Histogram
	rateLimitedTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors of the API and the lifecycle engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		lifecycleOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_operations_total",
			Help: "Successful lifecycle state changes by operation.",
		}, []string{"operation"})

		lifecycleRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_rejections_total",
			Help: "Lifecycle operations rejected by a business rule, by error kind.",
		}, []string{"operation", "kind"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_published_total",
			Help: "Lifecycle events handed to the message bus, by type and outcome.",
		}, []string{"type", "outcome"})

		statisticsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statistics_cache_lookups_total",
			Help: "Statistics cache lookups by result.",
		}, []string{"result"})

		attachmentRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachment_uploads_total",
			Help: "Stored submission attachments by detected type.",
		}, []string{"type"})

		attachmentRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachment_rejected_total",
			Help: "Rejected submission attachments by reason.",
		}, []string{"reason"})

		attachmentLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attachment_upload_seconds",
			Help:    "Time spent validating and storing an attachment.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_rate_limited_total",
			Help: "Requests refused by a rate limiter, by limiter scope.",
		}, []string{"scope"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			lifecycleOpsTotal,
			lifecycleRejectsTotal,
			eventsPublishedTotal,
			statisticsCacheTotal,
			attachmentRequests,
			attachmentRejected,
			attachmentLatency,
			rateLimitedTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// LifecycleOperations counts committed submit/evaluate/correct/... operations.
func LifecycleOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleOpsTotal
}

// LifecycleRejections counts operations refused with a domain error kind.
func LifecycleRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleRejectsTotal
}

// EventsPublished counts lifecycle events sent to the bus.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// StatisticsCacheLookups counts hits and misses of the statistics cache.
func StatisticsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statisticsCacheTotal
}

// AttachmentRequests counts stored attachments.
func AttachmentRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentRequests
}

// AttachmentRejected counts refused attachments.
func AttachmentRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentRejected
}

// AttachmentLatency observes attachment processing time.
func AttachmentLatency() prometheus.Histogram {
	RegisterMetrics()
	return attachmentLatency
}

// RateLimited exposes the counter of requests refused by a limiter.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}
