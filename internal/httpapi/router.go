// Package httpapi is the gin adapter over the application services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartattendance/internal/assignment"
	"smartattendance/internal/attendance"
	"smartattendance/internal/auth"
	"smartattendance/internal/classroom"
	"smartattendance/internal/correction"
	"smartattendance/internal/httpmiddleware"
	"smartattendance/internal/logger"
	"smartattendance/internal/metrics"
	"smartattendance/internal/model"
	"smartattendance/internal/notify"
	"smartattendance/internal/user"
)

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

// Options configure the router.
type Options struct {
	SigningKey      string
	Issuer          string
	CORSOrigins     []string
	RateLimitPerMin int
	Health          map[string]HealthCheck
}

// Services are the application services exposed over HTTP.
type Services struct {
	Auth          *auth.Service
	Attendance    *attendance.Service
	Corrections   *correction.Service
	Notifications *notify.Dispatcher
	Users         *user.Service
	Assignments   *assignment.Service
	Classes       *classroom.Service
}

type handler struct {
	svc Services
	log logger.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(opts Options, svc Services, log logger.Logger) *gin.Engine {
	h := &handler{svc: svc, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(securityHeaders())
	r.Use(metrics.GinMiddleware())
	r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin, nil).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(opts.Health))

	api := r.Group("/api")
	api.POST("/auth/login", h.login)
	api.POST("/auth/register", h.register)

	staff := auth.RequireRole(model.RoleTeacher, model.RoleAdmin)
	admin := auth.RequireRole(model.RoleAdmin)

	p := api.Group("", auth.RequireAuth(opts.SigningKey, opts.Issuer))
	{
		p.POST("/attendance", staff, h.recordBatch)
		p.GET("/attendance/student/:id", h.listAttendance)
		p.POST("/attendance/face-recognition", staff, h.recordFace)
		p.POST("/attendance/qr-code", h.recordQR)
		p.POST("/qr-code/generate", staff, h.generateQR)
		p.GET("/qr-code/image", h.qrImage)
		p.GET("/analytics/attendance/:class", h.analytics)

		p.POST("/correction-requests", auth.RequireRole(model.RoleStudent), h.fileCorrection)
		p.GET("/correction-requests/student/:id", h.listStudentCorrections)
		p.GET("/admin/correction-requests", admin, h.listAllCorrections)
		p.PUT("/admin/correction-requests/:id", admin, h.resolveCorrection)

		p.GET("/notifications/:userId", h.listNotifications)
		p.PUT("/notifications/:id/read", h.markNotificationRead)

		p.GET("/users", h.listUsers)
		p.GET("/users/:id/children", h.listChildren)

		p.POST("/assignments", staff, h.createAssignment)
		p.GET("/assignments/class/:class", h.listAssignments)

		p.POST("/classes", admin, h.createClass)
		p.GET("/classes", h.listClasses)
	}
	return r
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, check := range checks {
			healthy := check(ctx) == nil
			body[name] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
		conf.AllowCredentials = true
	}
	return cors.New(conf)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
