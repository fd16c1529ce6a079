package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/othello-backend/internal/db"
)

type HealthCheckHandler struct {
	dbService *db.Service
}

func NewHealthCheckHandler(dbService *db.Service) *HealthCheckHandler {
	return &HealthCheckHandler{dbService: dbService}
}

func (h *HealthCheckHandler) HealthCheck(c *gin.Context) {
	if err := h.dbService.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
