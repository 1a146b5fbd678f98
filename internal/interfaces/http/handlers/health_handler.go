package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler provides the liveness and readiness endpoints.
type HealthHandler struct {
	db    *gorm.DB
	redis redis.UniversalClient
}

// NewHealthHandler creates the health handler. Either dependency may be nil,
// in which case its check is skipped.
func NewHealthHandler(db *gorm.DB, redisClient redis.UniversalClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Live reports process liveness only.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Ready reports whether the backing stores answer. The counter store being
// down does not fail readiness: validation degrades fail-open without it.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK

	if h.db != nil {
		checks["database"] = "ok"
		if sqlDB, err := h.db.DB(); err != nil {
			checks["database"] = "error"
			status = http.StatusServiceUnavailable
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "error"
			status = http.StatusServiceUnavailable
		}
	}

	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "degraded"
		}
	}

	c.JSON(status, gin.H{
		"status":    statusText(status),
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func statusText(status int) string {
	if status == http.StatusOK {
		return "ready"
	}
	return "unavailable"
}
