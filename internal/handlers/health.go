package handlers

import (
	"net/http"

	"github.com/collabflow/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the store and the realtime hub.
type HealthHandler struct {
	db  *gorm.DB
	hub *services.Hub
}

func NewHealthHandler(db *gorm.DB, hub *services.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "collabflow",
		"components": gin.H{
			"database":         dbStatus,
			"realtime_clients": h.hub.ClientCount(),
		},
	})
}
