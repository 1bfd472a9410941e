// Package metrics exposes Prometheus collectors for the HTTP surface of the
// service. Import lifecycle metrics live in the progress Prometheus sink.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	uploadBytesTotal           prometheus.Counter
	uploadsRejectedTotal       *prometheus.CounterVec
	importQueueDepth           prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botlog_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botlog_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)

		uploadBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "botlog_upload_bytes_total",
				Help: "Bytes of log files accepted for import.",
			},
		)

		uploadsRejectedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botlog_uploads_rejected_total",
				Help: "Uploads refused before a job was created, labeled by reason.",
			},
			[]string{"reason"},
		)

		importQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "botlog_import_queue_depth",
				Help: "Imports waiting for a worker.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveUpload records an accepted upload of n bytes.
func ObserveUpload(n int64) {
	Init()
	if n > 0 {
		uploadBytesTotal.Add(float64(n))
	}
}

// ObserveRejectedUpload counts an upload refused for reason.
func ObserveRejectedUpload(reason string) {
	Init()
	uploadsRejectedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth reports the number of queued imports.
func SetQueueDepth(n int) {
	Init()
	importQueueDepth.Set(float64(n))
}
