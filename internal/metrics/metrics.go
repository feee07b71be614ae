// Package metrics exposes bridge activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kineticdata/peripherals-ldap/internal/ldap"
)

const namespace = "ldapbridge"

// Metrics holds the bridge collectors. It implements ldap.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// OperationsTotal counts bridge operations by outcome.
	OperationsTotal *prometheus.CounterVec
	// OperationDuration is the latency of bridge operations.
	OperationDuration *prometheus.HistogramVec
	// PagesTotal counts directory pages retrieved by paged searches.
	PagesTotal *prometheus.CounterVec
	// EntriesTotal counts records returned by paged searches.
	EntriesTotal *prometheus.CounterVec
	// SchemaLookupsTotal counts schema cache lookups by kind and result.
	SchemaLookupsTotal *prometheus.CounterVec
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
}

var _ ldap.Observer = (*Metrics)(nil)

// New registers the bridge collectors with a fresh registry that also
// carries the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of bridge operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Bridge operation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Total number of directory pages fetched",
			},
			[]string{"operation"},
		),
		EntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_returned_total",
				Help:      "Total number of records returned by paged searches",
			},
			[]string{"operation"},
		),
		SchemaLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_lookups_total",
				Help:      "Total number of schema cache lookups",
			},
			[]string{"kind", "result"},
		),
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OperationCompleted records the outcome of a bridge operation. Failures
// are labelled with their error kind.
func (m *Metrics) OperationCompleted(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = string(ldap.KindOf(err))
		if status == "" {
			status = "error"
		}
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) PagesFetched(operation string, pages, entries int) {
	m.PagesTotal.WithLabelValues(operation).Add(float64(pages))
	m.EntriesTotal.WithLabelValues(operation).Add(float64(entries))
}

func (m *Metrics) SchemaLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SchemaLookupsTotal.WithLabelValues(kind, result).Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
