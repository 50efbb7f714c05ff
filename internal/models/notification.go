package models

import "time"

type Notification struct {
	BaseModel

	UserID  uint       `gorm:"not null;index" json:"user_id"`
	Title   string     `gorm:"not null" json:"title"`
	Message string     `json:"message"`
	Type    string     `gorm:"not null" json:"type"` // "info", "verification", "survey", "account"
	IsRead  bool       `gorm:"not null;index" json:"is_read"`
	ReadAt  *time.Time `json:"read_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
