package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/health"
	"github.com/gin-gonic/gin"
)

func HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	database := health.StatusUp

	if err := db.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		database = health.StatusDown
	}

	dependencies := health.Run(ctx, DependencyChecks)
	for _, dep := range dependencies {
		if dep.Status == health.StatusDown {
			status = "degraded"
		}
	}

	c.JSON(code, gin.H{
		"status":       status,
		"message":      "GradTrack is running",
		"database":     database,
		"dependencies": dependencies,
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}
