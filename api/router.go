// Package api builds the HTTP API served by "shuttlecast serve".
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/shuttlecast/api/forecasts"
	"github.com/kilianp07/shuttlecast/app"
	coremon "github.com/kilianp07/shuttlecast/core/monitoring"
	"github.com/kilianp07/shuttlecast/infra/logger"
	"github.com/kilianp07/shuttlecast/pkg/response"
)

// SetupRouter wires the routes of the service.
func SetupRouter(svc *app.Service) *gin.Engine {
	r := gin.New()
	log := logger.New("http")
	r.Use(gin.CustomRecovery(reportPanic(log)), requestLogger(log))
	r.MaxMultipartMemory = int64(svc.Config().Server.MaxUploadMB) << 20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if svc.Config().Server.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")
	forecasts.NewHandler(svc).Register(v1.Group("/forecasts"))
	return r
}

// reportPanic hands handler panics to the monitor and answers 500.
func reportPanic(log logger.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, r any) {
		log.Errorf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
		coremon.CapturePanic(r)
		response.InternalError(c, "internal error")
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debugw("request", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		})
	}
}
