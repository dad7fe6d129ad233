package http

import (
	"net/http"
	"time"

	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter wires the REST endpoints with tracing and request metrics
// middleware.
func NewRouter(serviceName string, handlers *Handlers) *gin.Engine {
	srv := gin.Default()
	srv.Use(otelgin.Middleware(serviceName))

	srv.Use(func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(endpoint, http.StatusText(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})

	srv.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv.POST("/notifications/send", handlers.SendNotification)
	srv.POST("/notifications/:notificationid/retry", handlers.RetryNotification)
	srv.GET("/notifications/history/:userid", handlers.GetNotificationHistory)

	srv.POST("/preferences", handlers.CreatePreferences)
	srv.PUT("/preferences/:userid", handlers.UpdatePreferences)
	srv.GET("/preferences/:userid", handlers.GetPreferences)

	return srv
}
