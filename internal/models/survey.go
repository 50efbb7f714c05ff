package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Survey struct {
	BaseModel

	Title          string         `gorm:"not null" json:"title"`
	Description    string         `json:"description"`
	TargetRole     string         `gorm:"not null;index" json:"target_role"` // "graduating", "graduated", "all"
	Questions      datatypes.JSON `json:"questions"`
	IsOpen         bool           `gorm:"not null;index" json:"is_open"`
	OpensAt        *time.Time     `json:"opens_at"`
	ClosesAt       *time.Time     `json:"closes_at"`
	CreatedBy      uint           `json:"created_by"`
	LastReminderAt *time.Time     `json:"-"`

	// Relationships
	Responses []SurveyResponse `gorm:"foreignKey:SurveyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

type SurveyQuestion struct {
	ID       string   `json:"id" binding:"required"`
	Text     string   `json:"text" binding:"required"`
	Type     string   `json:"type" binding:"required,oneof=text choice multi rating boolean"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

// ParsedQuestions decodes the stored question list.
func (s *Survey) ParsedQuestions() ([]SurveyQuestion, error) {
	var questions []SurveyQuestion
	if len(s.Questions) == 0 {
		return questions, nil
	}
	if err := json.Unmarshal(s.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

type SurveyResponse struct {
	BaseModel

	SurveyID    uint           `gorm:"not null;uniqueIndex:idx_survey_user" json:"survey_id"`
	UserID      uint           `gorm:"not null;uniqueIndex:idx_survey_user;index" json:"user_id"`
	Answers     datatypes.JSON `json:"answers"`
	SubmittedAt time.Time      `gorm:"not null" json:"submitted_at"`

	// Relationships
	Survey Survey `gorm:"foreignKey:SurveyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User   User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
