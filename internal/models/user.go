package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Name               string  `gorm:"not null"`
	Email              string  `gorm:"uniqueIndex;not null"`
	PasswordHash       string  `gorm:"not null"`
	Role               string  `gorm:"not null;index"` // "graduating", "graduated", "admin"
	StudentNumber      *string `gorm:"uniqueIndex"`
	IsActive           bool    `gorm:"not null"`
	MustChangePassword bool    `gorm:"not null"`
	LastLoginAt        *time.Time

	// Relationships
	Profile       *Profile       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Notifications []Notification `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
