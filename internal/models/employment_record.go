package models

import "time"

type EmploymentRecord struct {
	BaseModel

	ProfileID          uint       `gorm:"not null;index" json:"profile_id"`
	CompanyName        string     `gorm:"not null" json:"company_name"`
	JobTitle           string     `gorm:"not null" json:"job_title"`
	EmploymentType     string     `gorm:"not null" json:"employment_type"` // "full-time", "part-time", "contract", "self-employed", "internship"
	Industry           string     `json:"industry"`
	Location           string     `json:"location"`
	MonthlySalaryRange string     `json:"monthly_salary_range"`
	StartDate          time.Time  `gorm:"not null" json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	IsCurrent          bool       `gorm:"not null;index" json:"is_current"`
	IsRelatedToDegree  bool       `gorm:"not null" json:"is_related_to_degree"`

	// Relationships
	Profile Profile `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
