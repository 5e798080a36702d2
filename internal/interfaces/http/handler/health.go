package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clinicore/backend/internal/infrastructure/persistence"
)

// HealthHandler reports process liveness and readiness.
type HealthHandler struct {
	db        *persistence.Database
	logger    *zap.Logger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *persistence.Database, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Health handles GET /health. It always returns 200 while the process is up.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// Ready handles GET /ready. It returns 503 when the database is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
