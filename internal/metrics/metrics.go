// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_total",
		Help: "Attendance records written, by method and status.",
	}, []string{"method", "status"})

	AttendanceRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rejections_total",
		Help: "Single-record submissions refused, by reason.",
	}, []string{"reason"})

	CorrectionsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correction_requests_filed_total",
		Help: "Correction requests filed by students.",
	})

	CorrectionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "correction_requests_resolved_total",
		Help: "Correction requests resolved by admins, by outcome.",
	}, []string{"status"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "In-app notifications persisted, by type and result.",
	}, []string{"type", "result"})

	RelayDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_relay_deliveries_total",
		Help: "External relay attempts, by channel and result.",
	}, []string{"channel", "result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware observes request latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
