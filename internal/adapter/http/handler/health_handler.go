package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthCheckTimeout = 5 * time.Second

// ModelState reports whether the classification pipeline is loaded
type ModelState interface {
	Loaded() bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	model ModelState
}

// NewHealthHandler creates a new health handler. Any dependency may be nil.
func NewHealthHandler(db *gorm.DB, redis *redis.Client, model ModelState) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redis,
		model: model,
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health. Cache and history are optional, so their
// failures degrade the status without failing the probe.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	components := map[string]string{
		"model":    h.modelStatus(),
		"database": h.databaseStatus(ctx),
		"redis":    h.redisStatus(ctx),
	}

	status := "healthy"
	for name, s := range components {
		if s == "ok" || s == "not configured" {
			continue
		}
		if name == "model" {
			status = "starting"
			continue
		}
		if status == "healthy" {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, HealthStatus{
		Status:     status,
		Components: components,
	})
}

// Ready handles GET /ready. The service is ready once the model is loaded
// and the history database, when configured, answers.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if h.model != nil && !h.model.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "model loading"})
		return
	}

	if h.db != nil {
		if s := h.databaseStatus(ctx); s != "ok" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database unreachable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) modelStatus() string {
	switch {
	case h.model == nil:
		return "not configured"
	case h.model.Loaded():
		return "ok"
	default:
		return "loading"
	}
}

func (h *HealthHandler) databaseStatus(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *HealthHandler) redisStatus(ctx context.Context) string {
	if h.redis == nil {
		return "not configured"
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
