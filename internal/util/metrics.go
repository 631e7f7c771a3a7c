package util

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every recorder is a no-op on a nil receiver.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	searchLatency       *prometheus.HistogramVec
	engineLatency       *prometheus.HistogramVec
	bulkInFlight        prometheus.Gauge
	bulkWaiting         prometheus.Gauge
	bulkItems           *prometheus.CounterVec
	lifecycleOps        *prometheus.CounterVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	errorCounter        *prometheus.CounterVec
	engineUp            prometheus.Gauge
	startTime           time.Time
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		searchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Search operation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		engineLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "engine_latency_seconds",
				Help:      "Search engine call latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		bulkInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bulk_requests_in_flight",
				Help:      "Number of bulk calls currently holding a permit",
			},
		),
		bulkWaiting: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bulk_requests_waiting",
				Help:      "Number of bulk calls waiting for a permit",
			},
		),
		bulkItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_items_total",
				Help:      "Bulk items by outcome",
			},
			[]string{"outcome"},
		),
		lifecycleOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_lifecycle_operations_total",
				Help:      "Index lifecycle operations by kind and result",
			},
			[]string{"operation", "result"},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
		errorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "location"},
		),
		engineUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "engine_up",
				Help:      "1 when the engine cluster is at least yellow",
			},
		),
		startTime: time.Now(),
	}

	return m
}

func (m *Metrics) IncrementHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, status).Inc()
}

func (m *Metrics) RecordHTTPDuration(route string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearchLatency(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.searchLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *Metrics) RecordEngineLatency(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.engineLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) IncrementBulkInFlight() {
	if m == nil {
		return
	}
	m.bulkInFlight.Inc()
}

func (m *Metrics) DecrementBulkInFlight() {
	if m == nil {
		return
	}
	m.bulkInFlight.Dec()
}

func (m *Metrics) IncrementBulkWaiting() {
	if m == nil {
		return
	}
	m.bulkWaiting.Inc()
}

func (m *Metrics) DecrementBulkWaiting() {
	if m == nil {
		return
	}
	m.bulkWaiting.Dec()
}

func (m *Metrics) AddBulkItems(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.bulkItems.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) IncrementLifecycle(operation, result string) {
	if m == nil {
		return
	}
	m.lifecycleOps.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) IncrementCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) IncrementError(errorType, location string) {
	if m == nil {
		return
	}
	m.errorCounter.WithLabelValues(errorType, location).Inc()
}

func (m *Metrics) SetEngineUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.engineUp.Set(1)
		return
	}
	m.engineUp.Set(0)
}

func (m *Metrics) GetUptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}
