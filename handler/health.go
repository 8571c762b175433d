package handler

import (
	"context"
	"net/http"

	"github.com/Ultra2000/pdfBot/service"
	"github.com/gin-gonic/gin"
)

// Prober exposes the remote service health probe.
type Prober interface {
	HealthCheck(ctx context.Context) service.HealthStatus
}

// HealthHandler reports process liveness plus a snapshot of the store and
// the remote processing service.
type HealthHandler struct {
	store  *service.DocumentStore
	prober Prober
}

func NewHealthHandler(store *service.DocumentStore, prober Prober) *HealthHandler {
	return &HealthHandler{store: store, prober: prober}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(c *gin.Context) {
	remote := h.prober.HealthCheck(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"documents":   h.store.CountDocuments(),
		"jobs":        h.store.CountJobs(),
		"pdf_service": remote.Status,
	})
}
