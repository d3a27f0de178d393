// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marks"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRateLimited     *prometheus.CounterVec

	StoreOperationsTotal *prometheus.CounterVec
	StoreLoadFallbacks   prometheus.Counter
	BookmarksStored      prometheus.Gauge

	ImportedTotal prometheus.Counter
	SkippedTotal  prometheus.Counter
}

// New creates and registers the collectors on reg (default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		HTTPRateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
		StoreOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Bookmark store operations by name and result.",
		}, []string{"op", "result"}),
		StoreLoadFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "load_fallbacks_total",
			Help:      "Loads that failed and were replaced by an empty collection.",
		}),
		BookmarksStored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "bookmarks",
			Help:      "Number of bookmarks after the last store operation.",
		}),
		ImportedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "bookmarks_imported_total",
			Help:      "Bookmarks added by imports.",
		}),
		SkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "bookmarks_skipped_total",
			Help:      "Duplicate bookmarks skipped by imports.",
		}),
	}
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.HTTPRateLimited.WithLabelValues(route).Inc()
}

func (m *Metrics) ObserveStoreOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(op, result).Inc()
}

func (m *Metrics) LoadFallback() {
	if m == nil {
		return
	}
	m.StoreLoadFallbacks.Inc()
}

func (m *Metrics) SetBookmarks(n int) {
	if m == nil {
		return
	}
	m.BookmarksStored.Set(float64(n))
}

func (m *Metrics) ObserveImport(imported, skipped int) {
	if m == nil {
		return
	}
	m.ImportedTotal.Add(float64(imported))
	m.SkippedTotal.Add(float64(skipped))
}
