package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/database"
)

// HealthHandler reports whether the API can reach its database
type HealthHandler struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewHealthHandler(db *gorm.DB, log *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.HealthCheck(ctx, h.db); err != nil {
		h.log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "ok",
	})
}
