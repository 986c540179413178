// Package telemetry exposes prometheus metrics for dataset operations and
// the SQL they issue, and optional OpenTelemetry tracing.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DurationBuckets suit operations between a few milliseconds (describe) and
// several minutes (parsing a full grid model).
var DurationBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60, 300}

// DBDurationBuckets are the buckets of SQL statement latency.
var DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Config holds metrics configuration.
type Config struct {
	// Namespace prefixes every metric. Default: "cimorm".
	Namespace string
	// SlowQueryThreshold counts statements at least this slow. Default: 1s.
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:          "cimorm",
		SlowQueryThreshold: time.Second,
	}
}

// Metrics owns a registry with the operation and database collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	config   Config
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	objects           *prometheus.CounterVec
	violations        *prometheus.GaugeVec

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	slowQueries   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "cimorm"
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = time.Second
	}

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "operations_total",
			Help:      "Dataset operations by outcome.",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of dataset operations in seconds.",
			Buckets:   DurationBuckets,
		}, []string{"operation"}),
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "objects_total",
			Help:      "CIM objects handled by an operation.",
		}, []string{"operation"}),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "lint_violations",
			Help:      "Objects violating a constraint in the last lint run, by violation kind.",
		}, []string{"kind"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "SQL statements by operation type and outcome.",
		}, []string{"operation", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "SQL statement latency in seconds.",
			Buckets:   DBDurationBuckets,
		}, []string{"operation"}),
		slowQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "db",
			Name:      "slow_queries_total",
			Help:      "SQL statements slower than the slow query threshold, by table.",
		}, []string{"table"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   DurationBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.operationDuration,
		m.objects,
		m.violations,
		m.queries,
		m.queryDuration,
		m.slowQueries,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Register adds a collector, ignoring collectors that are already registered.
func (m *Metrics) Register(c prometheus.Collector) error {
	if m == nil {
		return nil
	}
	if err := m.registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// ObserveOperation records the outcome and duration of an operation that
// started at start.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AddObjects counts objects parsed, committed or exported.
func (m *Metrics) AddObjects(operation string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.objects.WithLabelValues(operation).Add(float64(n))
}

// SetViolations replaces the violation gauges with the counts of a lint run.
func (m *Metrics) SetViolations(byKind map[string]int) {
	if m == nil {
		return
	}
	m.violations.Reset()
	for kind, n := range byKind {
		m.violations.WithLabelValues(kind).Set(float64(n))
	}
}

// RequestStarted counts a request as in flight until RequestFinished.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

// RequestFinished records a served HTTP request. Route is the matched route
// pattern, not the request path.
func (m *Metrics) RequestFinished(method, route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
