package services

import (
	"context"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/models"
)

type AuditEntry struct {
	UserID    *uint
	Action    string
	Entity    string
	EntityID  *uint
	Details   string
	IPAddress string
}

// Audit records entry in the system log. Errors are logged and swallowed.
func Audit(ctx context.Context, entry AuditEntry) {
	if db.DB == nil {
		return
	}

	log := models.SystemLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		Details:   entry.Details,
		IPAddress: entry.IPAddress,
	}

	if err := db.DB.WithContext(ctx).Create(&log).Error; err != nil {
		logger.LogError("Failed to write system log "+entry.Action, err)
	}
}
