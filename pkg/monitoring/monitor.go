package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ReconcileCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_reconciliations_total",
			Help: "Progress tree reconciliations by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "progress_reconcile_duration_seconds",
			Help:    "Duration of a progress tree reconciliation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"trigger"},
	)

	SynthesizedAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_synthesized_attempts_total",
			Help: "Satisfactory attempts created for marked lessons and topics",
		},
	)

	PrunedNodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_pruned_nodes_total",
			Help: "Tree nodes removed because their catalog entry no longer exists",
		},
		[]string{"level"},
	)

	ActivityWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_activity_writes_total",
			Help: "Activity log upserts and retractions",
		},
		[]string{"event", "op"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(ReconcileCounter)
		prometheus.MustRegister(ReconcileDuration)
		prometheus.MustRegister(SynthesizedAttempts)
		prometheus.MustRegister(PrunedNodes)
		prometheus.MustRegister(ActivityWrites)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
