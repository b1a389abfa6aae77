package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scholarhub_application_transitions_total",
		Help: "Application status transitions by target status",
	}, []string{"to"})
	PartialFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scholarhub_partial_failures_total",
		Help: "Multi-step operations whose dependent step failed",
	}, []string{"operation"})
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scholarhub_messages_sent_total",
		Help: "Total number of chat messages stored",
	})
	StreamSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scholarhub_stream_subscribers",
		Help: "Current number of conversation stream subscribers",
	})
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scholarhub_job_runs_total",
		Help: "Scheduled job executions by job and result",
	}, []string{"job", "result"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(StatusTransitions, PartialFailures, MessagesSent, StreamSubscribers, JobRuns, HttpRequestsTotal, HttpRequestDuration)
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
