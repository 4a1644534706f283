// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. Record methods are safe to call on a
// nil receiver so optional wiring stays simple in tests.
type Metrics struct {
	// Conversation metrics
	TurnsTotal          *prometheus.CounterVec
	TurnDurationSeconds prometheus.Histogram
	SessionsActive      prometheus.Gauge

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Retrieval metrics
	RetrievalResults         prometheus.Histogram
	RetrievalDurationSeconds prometheus.Histogram

	// Catalog metrics
	CatalogCourses      prometheus.Gauge
	IndexVocabularySize prometheus.Gauge
	CatalogReloadsTotal *prometheus.CounterVec
	CatalogRowsRejected prometheus.Counter

	// Description cache metrics
	DescriptionCacheTotal  *prometheus.CounterVec
	SingleflightDedupTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterKeys    *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_turns_total",
				Help: "Conversation turns by reply kind",
			},
			[]string{"kind"}, // kind: chitchat, prompt, results, no_results, answer, rate_limited
		),
		TurnDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "courseadvisor_turn_duration_seconds",
				Help:    "Time to produce a reply for one conversation turn",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "courseadvisor_sessions_active",
				Help: "Conversations currently held in memory",
			},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_llm_requests_total",
				Help: "LLM calls by provider, operation and status",
			},
			[]string{"provider", "operation", "status"}, // status: success, error
		),
		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courseadvisor_llm_duration_seconds",
				Help:    "LLM call latency by provider and operation",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"provider", "operation"},
		),
		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_llm_fallback_total",
				Help: "Operations answered by the offline fallback after every provider failed",
			},
			[]string{"operation"},
		),

		RetrievalResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "courseadvisor_retrieval_results",
				Help:    "Courses surviving similarity and filters per query",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		RetrievalDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "courseadvisor_retrieval_duration_seconds",
				Help:    "Time to score and filter the catalog",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		CatalogCourses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "courseadvisor_catalog_courses",
				Help: "Courses in the active index",
			},
		),
		IndexVocabularySize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "courseadvisor_index_vocabulary_size",
				Help: "Terms in the active TF-IDF vocabulary",
			},
		),
		CatalogReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_catalog_reloads_total",
				Help: "Catalog loads by status",
			},
			[]string{"status"}, // status: success, error
		),
		CatalogRowsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "courseadvisor_catalog_rows_rejected_total",
				Help: "Catalog rows skipped because they failed validation",
			},
		),

		DescriptionCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_description_cache_total",
				Help: "Course description lookups by result",
			},
			[]string{"result"}, // result: hit, miss
		),
		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_singleflight_dedup_total",
				Help: "Requests that waited on an in-flight call instead of executing",
			},
			[]string{"module"},
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_webhook_requests_total",
				Help: "LINE webhook events by event type and status",
			},
			[]string{"event_type", "status"},
		),
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courseadvisor_webhook_duration_seconds",
				Help:    "LINE webhook event processing time by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"event_type"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseadvisor_rate_limiter_dropped_total",
				Help: "Requests dropped by rate limiter",
			},
			[]string{"limiter"},
		),
		RateLimiterKeys: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "courseadvisor_rate_limiter_keys",
				Help: "Keys currently tracked by a keyed rate limiter",
			},
			[]string{"limiter"},
		),
	}
}

// RecordTurn records a completed conversation turn.
func (m *Metrics) RecordTurn(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(kind).Inc()
	m.TurnDurationSeconds.Observe(d.Seconds())
}

// SetSessionsActive sets the number of in-memory conversations.
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordLLM records one provider call.
func (m *Metrics) RecordLLM(provider, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordLLMFallback records an operation served by the offline fallback.
func (m *Metrics) RecordLLMFallback(operation string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(operation).Inc()
}

// RecordRetrieval records the survivor count and latency of one query.
func (m *Metrics) RecordRetrieval(total int, d time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalResults.Observe(float64(total))
	m.RetrievalDurationSeconds.Observe(d.Seconds())
}

// SetIndexSize records the size of the active index.
func (m *Metrics) SetIndexSize(courses, vocabulary int) {
	if m == nil {
		return
	}
	m.CatalogCourses.Set(float64(courses))
	m.IndexVocabularySize.Set(float64(vocabulary))
}

// RecordCatalogReload records a catalog load attempt.
func (m *Metrics) RecordCatalogReload(status string) {
	if m == nil {
		return
	}
	m.CatalogReloadsTotal.WithLabelValues(status).Inc()
}

// RecordRowsRejected adds n rejected catalog rows.
func (m *Metrics) RecordRowsRejected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CatalogRowsRejected.Add(float64(n))
}

// RecordDescriptionCache records a description cache hit or miss.
func (m *Metrics) RecordDescriptionCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DescriptionCacheTotal.WithLabelValues(result).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordWebhook records a webhook event
func (m *Metrics) RecordWebhook(eventType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(d.Seconds())
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterKeys records how many keys a limiter is tracking.
func (m *Metrics) SetRateLimiterKeys(limiter string, n int) {
	if m == nil {
		return
	}
	m.RateLimiterKeys.WithLabelValues(limiter).Set(float64(n))
}
