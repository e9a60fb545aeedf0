package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wiredraw_ws_connections",
		Help: "Current number of registered websocket connections",
	})
	WsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wiredraw_ws_rejected_total",
		Help: "Connections refused during authentication, by reason",
	}, []string{"reason"})
	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wiredraw_frames_total",
		Help: "Inbound frames by type and outcome",
	}, []string{"type", "outcome"})
	BroadcastDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wiredraw_broadcast_delivered_total",
		Help: "Frames enqueued to room members",
	})
	BroadcastDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wiredraw_broadcast_dropped_total",
		Help: "Frames dropped because a recipient was not writable",
	})
	ShapesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wiredraw_shapes_appended_total",
		Help: "Shape records persisted",
	})
	ShapesErased = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wiredraw_shapes_erased_total",
		Help: "Shape records deleted by erase reconciliation",
	})
	PersistenceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wiredraw_persistence_errors_total",
		Help: "Failed shape log operations",
	}, []string{"op"})
	LivenessSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wiredraw_liveness_swept_total",
		Help: "Connections removed by the heartbeat sweep",
	})
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
	prometheus.MustRegister(
		WsConnections,
		WsRejected,
		FramesTotal,
		BroadcastDelivered,
		BroadcastDropped,
		ShapesAppended,
		ShapesErased,
		PersistenceErrors,
		LivenessSwept,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware records request counts and latencies for Prometheus.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
