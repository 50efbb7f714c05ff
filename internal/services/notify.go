package services

import (
	"fmt"

	"github.com/cas-gradtrack/gradtrack/internal/models"
	"gorm.io/gorm"
)

// Notify creates one notification row per user id.
func Notify(tx *gorm.DB, userIDs []uint, title, message, kind string) error {
	if len(userIDs) == 0 {
		return nil
	}

	notifications := make([]models.Notification, 0, len(userIDs))

	for _, id := range userIDs {
		notifications = append(notifications, models.Notification{
			UserID:  id,
			Title:   title,
			Message: message,
			Type:    kind,
		})
	}

	if err := tx.CreateInBatches(&notifications, 100).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	return nil
}

// NotifyRoles notifies every active user holding one of roles and returns how many were notified.
func NotifyRoles(tx *gorm.DB, roles []string, title, message, kind string) (int, error) {
	var userIDs []uint

	if err := tx.Model(&models.User{}).
		Where("role IN ? AND is_active = ?", roles, true).
		Pluck("id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}

	if err := Notify(tx, userIDs, title, message, kind); err != nil {
		return 0, err
	}

	return len(userIDs), nil
}
