package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kitahub/kita-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the lifecycle
// engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	purgeRuns       *prometheus.CounterVec
	purgedRows      *prometheus.CounterVec
	purgeDuration   prometheus.Observer
	softDeletes     *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	purgeRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_purge_runs_total",
		Help: "Total retention purge runs by outcome",
	}, []string{"outcome"})

	purgedRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_purged_rows_total",
		Help: "Rows permanently erased by the retention purge",
	}, []string{"entity_type"})

	purgeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "retention_purge_duration_seconds",
		Help:    "Duration of full retention purge runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	softDeletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soft_deletes_total",
		Help: "Soft-delete operations by entity type",
	}, []string{"entity_type"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, purgeRuns, purgedRows, purgeDuration, softDeletes, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		purgeRuns:       purgeRuns,
		purgedRows:      purgedRows,
		purgeDuration:   purgeDuration,
		softDeletes:     softDeletes,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObservePurgeRun records a completed purge run.
func (m *MetricsService) ObservePurgeRun(result *models.PurgeResult, outcome string) {
	if m == nil {
		return
	}
	m.purgeRuns.WithLabelValues(outcome).Inc()
	if result == nil {
		return
	}
	m.purgeDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	for t, n := range result.Purged {
		m.purgedRows.WithLabelValues(string(t)).Add(float64(n))
	}
}

// RecordSoftDelete counts one soft-delete of an entity type.
func (m *MetricsService) RecordSoftDelete(t models.EntityType) {
	if m == nil {
		return
	}
	m.softDeletes.WithLabelValues(string(t)).Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
