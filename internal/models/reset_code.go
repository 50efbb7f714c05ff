package models

import "time"

type ResetCode struct {
	BaseModel

	Email     string    `gorm:"not null;index"`
	Code      string    `gorm:"not null;size:6"`
	TokenHash string    `gorm:"not null;size:64"`
	Attempts  int       `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UsedAt    *time.Time
}
