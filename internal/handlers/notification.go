package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BroadcastNotificationRequest struct {
	Title   string   `json:"title" binding:"required"`
	Message string   `json:"message" binding:"required"`
	Type    string   `json:"type" binding:"omitempty,oneof=info verification survey account"`
	Roles   []string `json:"roles" binding:"omitempty,dive,oneof=graduating graduated admin all"`
	UserIDs []uint   `json:"user_ids"`
}

func ListNotifications(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	page, pageSize := utils.GetPagination(ctx)

	query := db.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	if ctx.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		internalError(ctx, "Failed to count notifications", err)
		return
	}

	var notifications []models.Notification
	if err := query.
		Order("is_read ASC").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications).Error; err != nil {
		internalError(ctx, "Failed to list notifications", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}

func MarkNotificationRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notificationID, err := utils.GetUintParam(ctx, "notification_id", "Notification ID")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var notification models.Notification

	if err := db.DB.Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			internalError(ctx, "Failed to fetch notification", err)
		}
		return
	}

	if !notification.IsRead {
		now := time.Now()
		if err := db.DB.Model(&notification).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
			internalError(ctx, "Failed to mark notification read", err)
			return
		}
		notification.IsRead = true
		notification.ReadAt = &now
	}

	ctx.JSON(http.StatusOK, gin.H{"notification": notification})
}

func MarkAllNotificationsRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	result := db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})

	if result.Error != nil {
		internalError(ctx, "Failed to mark notifications read", result.Error)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read", "updated": result.RowsAffected})
}

func UnreadNotificationCount(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var count int64
	if err := db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		internalError(ctx, "Failed to count notifications", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

// BroadcastNotification lets an admin notify roles and/or specific users.
func BroadcastNotification(ctx *gin.Context) {
	adminID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req BroadcastNotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	if len(req.Roles) == 0 && len(req.UserIDs) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "roles or user_ids is required"})
		return
	}

	if req.Type == "" {
		req.Type = types.NotificationInfo
	}

	roles := make([]string, 0, len(req.Roles))
	for _, role := range req.Roles {
		if role == types.TargetAll {
			roles = append(roles, types.RoleGraduating, types.RoleGraduated)
			continue
		}
		roles = append(roles, role)
	}

	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	notified := 0

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var recipients []uint

		query := tx.Model(&models.User{}).Where("is_active = ?", true)

		switch {
		case len(roles) > 0 && len(req.UserIDs) > 0:
			query = query.Where("(role IN ? OR id IN ?)", roles, req.UserIDs)
		case len(roles) > 0:
			query = query.Where("role IN ?", roles)
		default:
			query = query.Where("id IN ?", req.UserIDs)
		}

		if err := query.Pluck("id", &recipients).Error; err != nil {
			return err
		}

		notified = len(recipients)
		return services.Notify(tx, recipients, title, message, req.Type)
	})

	if err != nil {
		internalError(ctx, "Failed to broadcast notification", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &adminID,
		Action:    "notification.broadcast",
		Entity:    "notification",
		Details:   title,
		IPAddress: ctx.ClientIP(),
	})

	ctx.JSON(http.StatusCreated, gin.H{"message": "Notification sent", "notified": notified})
}
