package models

import "time"

type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&EmploymentRecord{},
		&Survey{},
		&SurveyResponse{},
		&Notification{},
		&SystemLog{},
		&ResetCode{},
	}
}
