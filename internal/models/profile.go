package models

import "time"

// Profile holds one student's personal, academic and employment data. Every
// section is saved independently, so all section fields are optional here and
// required-ness is enforced per section by the handlers.
type Profile struct {
	BaseModel

	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	// Personal
	FirstName  string     `json:"first_name"`
	MiddleName string     `json:"middle_name"`
	LastName   string     `json:"last_name"`
	Sex        string     `json:"sex"`
	BirthDate  *time.Time `json:"birth_date"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	PhotoURL   string     `json:"photo_url"`

	// Academic
	StudentNumber          string `json:"student_number"`
	Program                string `gorm:"index" json:"program"`
	Major                  string `json:"major"`
	YearGraduated          *int   `gorm:"index" json:"year_graduated"`
	ExpectedGraduationYear *int   `json:"expected_graduation_year"`
	Honors                 string `json:"honors"`

	// Employment summary, refreshed from employment records
	EmploymentStatus string `gorm:"not null;index" json:"employment_status"`
	CurrentJobTitle  string `json:"current_job_title"`
	CurrentEmployer  string `json:"current_employer"`

	VerificationStatus  string     `gorm:"not null;index" json:"verification_status"`
	VerificationRemarks string     `json:"verification_remarks"`
	VerifiedBy          *uint      `json:"verified_by"`
	VerifiedAt          *time.Time `json:"verified_at"`
	SubmittedAt         *time.Time `json:"submitted_at"`

	// Relationships
	User              User               `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	EmploymentRecords []EmploymentRecord `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"employment_records,omitempty"`
}
