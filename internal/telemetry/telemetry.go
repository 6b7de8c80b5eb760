// Package telemetry provides Prometheus-based operational metrics for
// meteoreg: HTTP traffic, readings-store activity, and catalog usage.
// These are service metrics about meteoreg itself, distinct from the
// meteorological metrics the catalog models.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all meteoreg telemetry
	namespace = "meteoreg"

	// Subsystems
	subsystemAPI     = "api"
	subsystemStore   = "store"
	subsystemCatalog = "catalog"
	subsystemFilter  = "filter"
)

// Telemetry holds all Prometheus collectors for the service.
type Telemetry struct {
	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// Store metrics
	storeQueries       *prometheus.CounterVec
	storeQueryDuration *prometheus.HistogramVec

	// Catalog metrics
	catalogLookups *prometheus.CounterVec

	// Filter metrics
	filterRows       *prometheus.CounterVec
	schemaViolations prometheus.Counter

	registry *prometheus.Registry
}

// New creates a telemetry instance with all collectors registered, plus the
// standard Go and process collectors for runtime visibility.
func New() *Telemetry {
	registry := prometheus.NewRegistry()

	t := &Telemetry{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemAPI,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemAPI,
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"method", "path"},
		),
		storeQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemStore,
				Name:      "queries_total",
				Help:      "Total number of readings-store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		storeQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemStore,
				Name:      "query_duration_seconds",
				Help:      "Duration of readings-store operations in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),
		catalogLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemCatalog,
				Name:      "lookups_total",
				Help:      "Total number of catalog lookups by registry prefix and status",
			},
			[]string{"registry", "status"},
		),
		filterRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemFilter,
				Name:      "rows_total",
				Help:      "Total number of time-series rows processed by outcome",
			},
			[]string{"outcome"},
		),
		schemaViolations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemFilter,
				Name:      "schema_violations_total",
				Help:      "Total number of filter calls rejected by schema validation",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		t.httpRequests,
		t.httpDuration,
		t.storeQueries,
		t.storeQueryDuration,
		t.catalogLookups,
		t.filterRows,
		t.schemaViolations,
	)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return t
}

// Registry returns the underlying Prometheus registry.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Handler returns the HTTP handler exposing the collected metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// IncrementHTTPRequests increments the HTTP request counter.
func (t *Telemetry) IncrementHTTPRequests(method, path, status string) {
	t.httpRequests.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request duration.
func (t *Telemetry) RecordHTTPDuration(method, path string, duration time.Duration) {
	t.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementStoreQueries increments the store operation counter.
func (t *Telemetry) IncrementStoreQueries(operation, status string) {
	t.storeQueries.WithLabelValues(operation, status).Inc()
}

// RecordStoreQueryDuration records store operation duration.
func (t *Telemetry) RecordStoreQueryDuration(operation string, duration time.Duration) {
	t.storeQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementCatalogLookups increments the catalog lookup counter.
func (t *Telemetry) IncrementCatalogLookups(registryPrefix, status string) {
	t.catalogLookups.WithLabelValues(registryPrefix, status).Inc()
}

// IncrementFilterRows increments the processed-row counter by outcome
// (kept or dropped).
func (t *Telemetry) IncrementFilterRows(outcome string, count int) {
	t.filterRows.WithLabelValues(outcome).Add(float64(count))
}

// IncrementSchemaViolations increments the rejected filter call counter.
func (t *Telemetry) IncrementSchemaViolations() {
	t.schemaViolations.Inc()
}
