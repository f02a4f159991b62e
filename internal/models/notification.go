package models

import "time"

// NotificationKind identifies what produced a notification.
type NotificationKind string

const (
	NotificationRecurringInserted NotificationKind = "recurring_inserted"
	NotificationBudgetThreshold   NotificationKind = "budget_threshold"
)

// Notification is an inbox entry delivered to an owner.
type Notification struct {
	Base
	UserID   string           `gorm:"not null;index" json:"user_id"`
	Kind     NotificationKind `gorm:"not null" json:"kind"`
	Category string           `gorm:"not null" json:"category"`
	Title    string           `gorm:"not null" json:"title"`
	Message  string           `gorm:"not null" json:"message"`
	ReadAt   *time.Time       `json:"read_at,omitempty"`
}
