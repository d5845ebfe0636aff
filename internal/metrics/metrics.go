package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine metrics.
var (
	// EngineDegradedTotal counts store failures hidden from callers by a fail-open read path.
	EngineDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neighborfit",
			Name:      "engine_degraded_total",
			Help:      "Store failures absorbed by fail-open read paths",
		},
		[]string{"operation"},
	)

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neighborfit",
			Name:      "validation_failures_total",
			Help:      "Writes rejected by score validation",
		},
		[]string{"kind"},
	)

	EngineOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neighborfit",
			Name:      "engine_operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	DimensionMean = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "neighborfit",
			Name:      "dimension_mean",
			Help:      "Mean lifestyle score per dimension at the last statistics report",
		},
		[]string{"dimension"},
	)

	ImportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neighborfit",
			Name:      "import_records_total",
			Help:      "Neighborhoods processed by the bulk import pipeline",
		},
		[]string{"status"},
	)
)

// HTTP metrics.
var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neighborfit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neighborfit",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		EngineDegradedTotal,
		ValidationFailuresTotal,
		EngineOperationDuration,
		DimensionMean,
		ImportedTotal,
		httpRequestDuration,
		httpRequestsTotal,
	)
}

// ObserveDuration records the time since start for an engine operation.
func ObserveDuration(operation string, start time.Time) {
	EngineOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Middleware records HTTP request duration and count.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Use the route template to keep label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
