package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds the request duration histogram, request counter and
// in-flight gauge. Labels: method, path, status.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	inFlight prometheus.Gauge
}

func newHTTPMetrics(factory promauto.Factory) *HTTPMetrics {
	return &HTTPMetrics{
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
	}
}

// Observe records one completed request.
func (m *HTTPMetrics) Observe(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.duration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.total.WithLabelValues(method, path, code).Inc()
}

// Track increments the in-flight gauge and returns the matching decrement.
func (m *HTTPMetrics) Track() (done func()) {
	m.inFlight.Inc()
	return m.inFlight.Dec
}
