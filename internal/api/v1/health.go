package v1

import (
	"net/http"

	"github.com/flexprice/reconciler/internal/logger"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	logger *logger.Logger
}

func NewHealthHandler(
	logger *logger.Logger,
) *HealthHandler {
	return &HealthHandler{
		logger: logger,
	}
}

// Health reports liveness
func (h *HealthHandler) Health(c *gin.Context) {
	h.logger.Debugw("health check", "path", c.Request.URL.Path)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
