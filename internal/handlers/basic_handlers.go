package handlers

import (
	"net/http"
	"time"

	"mint-backend/internal/db"

	"github.com/gin-gonic/gin"
)

// Ping liveness probe
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Health readiness probe, reports the primary store state
func Health(c *gin.Context) {
	database := "ok"
	if db.DB == nil {
		database = "unavailable"
	} else if sqlDB, err := db.DB.DB(); err != nil || sqlDB.Ping() != nil {
		database = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": database,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
