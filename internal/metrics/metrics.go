// Package metrics provides Prometheus metrics collection and exposure.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects service metrics on a Prometheus registry
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	loginSuccess    prometheus.Counter
	loginFailure    prometheus.Counter

	registry *prometheus.Registry
}

// NewCollector creates a Collector and registers its metrics on a fresh registry
func NewCollector() *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userservice_http_requests_total",
			Help: "Total HTTP requests by method and status code",
		}, []string{"method", "status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "userservice_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userservice_login_success_total",
			Help: "Total successful logins",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userservice_login_failure_total",
			Help: "Total failed login attempts",
		}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.loginSuccess,
		c.loginFailure,
	)

	return c
}

// RecordLoginSuccess records a successful login
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure records a failed login attempt
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request totals and latency for every request
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		c.requestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.statusCode)).Inc()
		c.requestDuration.Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}
