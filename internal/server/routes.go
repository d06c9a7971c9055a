package server

import (
	"net/http"
	"time"

	"github.com/danmuck/netstring/internal/logging"
	"github.com/danmuck/netstring/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

// MetricsRouter serves /health and the Prometheus scrape route for a listener.
func MetricsRouter(name string, svc *Service) *gin.Engine {
	observability.RegisterMetrics()
	started := time.Now()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(logging.Component("http")))
	router.Use(observability.RequestMetricsMiddleware(name))

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"uptime":  time.Since(started).Round(time.Second).String(),
			"service": name,
			"version": version,
		}
		if svc != nil {
			body["active_conns"] = svc.ActiveConns()
		}
		c.JSON(http.StatusOK, body)
	})
	router.GET(observability.MetricsPath, gin.WrapH(promhttp.Handler()))
	return router
}
