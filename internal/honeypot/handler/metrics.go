package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	honeypotRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	honeypotRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "honeypot_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	honeypotInteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_interactions_total",
		Help: "Total recorded engagements by risk level.",
	}, []string{"risk_level"})

	honeypotAuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_auth_failures_total",
		Help: "Total requests rejected for a missing or wrong API key.",
	}, []string{"path"})

	honeypotLogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "honeypot_log_records",
		Help: "Number of records in the in-memory engagement log.",
	})

	honeypotStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "honeypot_stream_clients",
		Help: "Connected /admin/stream WebSocket clients.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			// Unmatched routes; don't let scanners explode label cardinality.
			path = "unmatched"
		}

		honeypotRequestsTotal.WithLabelValues(method, path, status).Inc()
		honeypotRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordInteraction counts one engagement at the given risk level.
func RecordInteraction(level string) {
	honeypotInteractionsTotal.WithLabelValues(level).Inc()
}

// RecordAuthFailure counts one rejected API key.
func RecordAuthFailure(path string) {
	if path == "" {
		path = "unmatched"
	}
	honeypotAuthFailuresTotal.WithLabelValues(path).Inc()
}

// SetLogSize sets the engagement log size gauge.
func SetLogSize(n int) {
	honeypotLogSize.Set(float64(n))
}

// SetStreamClients sets the stream client gauge.
func SetStreamClients(n int) {
	honeypotStreamClients.Set(float64(n))
}
