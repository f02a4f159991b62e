package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance written on transactions materialized from a recurring template.
const (
	RecurringDescriptionSuffix = " (Recurring)"
	RecurringNotes             = "Auto-generated from recurring expense"
)

// Transaction is a single spending record.
//
// TemplateID and ScheduledFor are only set on machine-generated rows; the
// unique index over them allows one transaction per due occurrence of a
// template.
type Transaction struct {
	Base
	UserID       string          `gorm:"not null;index:idx_transactions_user_category_date,priority:1" json:"user_id"`
	Category     string          `gorm:"not null;index:idx_transactions_user_category_date,priority:2" json:"category"`
	Description  string          `gorm:"not null" json:"description"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	OccurredAt   time.Time       `gorm:"not null;index:idx_transactions_user_category_date,priority:3" json:"occurred_at"`
	Notes        string          `json:"notes,omitempty"`
	IsRecurring  bool            `gorm:"not null" json:"is_recurring"`
	TemplateID   *string         `gorm:"type:uuid;uniqueIndex:idx_transactions_occurrence,priority:1" json:"template_id,omitempty"`
	ScheduledFor *time.Time      `gorm:"uniqueIndex:idx_transactions_occurrence,priority:2" json:"scheduled_for,omitempty"`
}
