package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/limaJavier/roomtabling/internal/metrics"
)

// HealthHandler exposes observability endpoints.
type HealthHandler struct {
	metrics *metrics.Metrics
}

func NewHealthHandler(metrics *metrics.Metrics) *HealthHandler {
	return &HealthHandler{metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
