package models

// AuditLog records a mutation made through the API. Actor tells user
// requests apart from pipeline triggers acting on the owner's behalf.
type AuditLog struct {
	Base
	UserID       string `gorm:"not null;index" json:"user_id"`
	Actor        string `gorm:"not null;default:user" json:"actor"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
