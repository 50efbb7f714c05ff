package router

import (
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/handlers"
	"github.com/cas-gradtrack/gradtrack/internal/middleware"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Password reset is called from pages outside the app origin list.
const passwordResetPrefix = "/api/auth/password-reset"

// Options holds what the router needs beyond the handlers package settings.
type Options struct {
	// UploadsDir is served under UploadsPath when set.
	UploadsDir  string
	UploadsPath string
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), apiCORS())

	if opts.UploadsDir != "" && opts.UploadsPath != "" {
		r.Static(opts.UploadsPath, opts.UploadsDir)
	}

	reset := r.Group(passwordResetPrefix, handlers.ResetCORS())
	{
		reset.OPTIONS("/request", handlers.ResetCORS())
		reset.OPTIONS("/verify", handlers.ResetCORS())
		reset.OPTIONS("/confirm", handlers.ResetCORS())
		reset.POST("/request", handlers.RequestPasswordReset)
		reset.POST("/verify", handlers.VerifyResetCode)
		reset.POST("/confirm", handlers.ConfirmPasswordReset)
	}

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.RegisterUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", middleware.AuthMiddleware(), handlers.LogoutUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
			auth.PATCH("/me", middleware.AuthMiddleware(), handlers.UpdateUser)
			auth.DELETE("/me", middleware.AuthMiddleware(), handlers.DeleteUser)
		}

		student := middleware.RequireRole(types.RoleGraduating, types.RoleGraduated)

		profile := api.Group("/profile", middleware.AuthMiddleware(), student)
		{
			profile.GET("", handlers.GetProfile)
			profile.PUT("/personal", handlers.UpdatePersonalSection)
			profile.PUT("/academic", handlers.UpdateAcademicSection)
			profile.PUT("/employment", handlers.UpdateEmploymentSection)
			profile.POST("/submit", handlers.SubmitProfile)
			profile.POST("/photo", handlers.UploadProfilePhoto)

			profile.GET("/employment-records", handlers.ListEmploymentRecords)
			profile.POST("/employment-records", handlers.CreateEmploymentRecord)
			profile.PUT("/employment-records/:record_id", handlers.UpdateEmploymentRecord)
			profile.DELETE("/employment-records/:record_id", handlers.DeleteEmploymentRecord)
		}

		surveys := api.Group("/surveys", middleware.AuthMiddleware(), student)
		{
			surveys.GET("", handlers.ListSurveys)
			surveys.GET("/:survey_id", handlers.GetSurvey)
			surveys.POST("/:survey_id/responses", handlers.SubmitSurveyResponse)
		}

		notifications := api.Group("/notifications", middleware.AuthMiddleware())
		{
			notifications.GET("", handlers.ListNotifications)
			notifications.GET("/unread-count", handlers.UnreadNotificationCount)
			notifications.POST("/read-all", handlers.MarkAllNotificationsRead)
			notifications.PATCH("/:notification_id/read", handlers.MarkNotificationRead)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.RequireRole(types.RoleAdmin))
		{
			admin.GET("/dashboard", handlers.GetDashboard)
			admin.GET("/logs", handlers.ListSystemLogs)

			admin.POST("/accounts", handlers.IssueAccount)
			admin.GET("/users", handlers.ListUsers)
			admin.PATCH("/users/:user_id/status", handlers.UpdateUserStatus)

			admin.GET("/profiles", handlers.ListProfiles)
			admin.GET("/profiles/:profile_id", handlers.GetProfileByID)
			admin.PATCH("/profiles/:profile_id/verification", handlers.UpdateVerification)

			admin.GET("/surveys", handlers.ListAllSurveys)
			admin.POST("/surveys", handlers.CreateSurvey)
			admin.PUT("/surveys/:survey_id", handlers.UpdateSurvey)
			admin.DELETE("/surveys/:survey_id", handlers.DeleteSurvey)
			admin.GET("/surveys/:survey_id/responses", handlers.ListSurveyResponses)

			admin.POST("/notifications", handlers.BroadcastNotification)
		}

		api.GET("/ws/admin", middleware.AuthMiddleware(), middleware.RequireRole(types.RoleAdmin), handlers.AdminWebSocket)
	}

	return r
}

// apiCORS applies the origin allow-list everywhere except the password reset
// endpoints, which answer their own preflights.
func apiCORS() gin.HandlerFunc {
	handler := cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})

	return func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, passwordResetPrefix) {
			ctx.Next()
			return
		}
		handler(ctx)
	}
}
