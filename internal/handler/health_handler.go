package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type storePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and store liveness. It always answers 200;
// an unreachable store degrades the body, never the status code.
type HealthHandler struct {
	store storePinger
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(store storePinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	status, database := "healthy", "connected"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if h.store == nil || h.store.Ping(ctx) != nil {
		status, database = "unhealthy", "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "database": database})
}
