// Package metrics exposes Prometheus instrumentation for the HTTP API and the
// migration engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taxonomy"

// Metrics holds every collector. It implements service.Recorder.
type Metrics struct {
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	migrations         prometheus.Counter
	legacyNodes        prometheus.Counter
	validationFailures *prometheus.CounterVec
}

// New registers the collectors on reg. The server and the tests each pass
// their own prometheus.NewRegistry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Taxonomy migrations run",
		}),
		legacyNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_nodes_total",
			Help:      "Legacy method nodes upgraded by migration",
		}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Structural validation failures by stage",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.migrations, m.legacyNodes, m.validationFailures)
	return m
}

func (m *Metrics) MigrationCompleted(legacyNodes int) {
	m.migrations.Inc()
	m.legacyNodes.Add(float64(legacyNodes))
}

func (m *Metrics) ValidationFailed(stage string) {
	m.validationFailures.WithLabelValues(stage).Inc()
}

// Middleware records request counts and latency. Routes are labelled with
// their registered pattern so path parameters do not blow up cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
