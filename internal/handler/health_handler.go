// Package handler contains the gin HTTP handlers. Each handler struct holds
// only the dependencies its routes need.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Healthz responds with service status. It touches neither the database nor
// the network, so it reports process liveness only; load balancers and
// container orchestrators poll it without costing a lookup.
// Route: GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "icon-service",
	})
}
