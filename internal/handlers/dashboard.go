package handlers

import (
	"net/http"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/gin-gonic/gin"
)

func GetDashboard(ctx *gin.Context) {
	in, err := services.LoadDashboardInput(ctx.Request.Context(), db.DB)
	if err != nil {
		internalError(ctx, "Failed to load dashboard", err)
		return
	}

	ctx.JSON(http.StatusOK, services.ComputeDashboard(in))
}
