package models

// SystemLog is an audit entry. UserID has no foreign key and outlives the
// account it points to.
type SystemLog struct {
	BaseModel

	UserID    *uint  `gorm:"index" json:"user_id"`
	Action    string `gorm:"not null;index" json:"action"`
	Entity    string `json:"entity"`
	EntityID  *uint  `json:"entity_id"`
	Details   string `json:"details"`
	IPAddress string `json:"ip_address"`
}
