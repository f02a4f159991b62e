package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringTemplate is a recipe for producing transactions on a schedule.
type RecurringTemplate struct {
	Base
	UserID      string          `gorm:"not null;index:idx_recurring_templates_user_next_due,priority:1" json:"user_id"`
	Category    string          `gorm:"not null" json:"category"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	StartAt     time.Time       `gorm:"not null" json:"start_at"`
	EndAt       *time.Time      `json:"end_at,omitempty"`
	Frequency   Frequency       `gorm:"not null" json:"frequency"`
	NextDue     time.Time       `gorm:"not null;index:idx_recurring_templates_user_next_due,priority:2" json:"next_due"`
	// LastPassAt is the instant of the last pass that processed the template.
	LastPassAt  *time.Time      `json:"last_pass_at,omitempty"`
}

// passInstant normalizes a pass time to the precision the database keeps.
func passInstant(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}

// ProcessedAt reports whether a pass at now already handled the template.
// A dormant template is still due after one advance, so a repeated pass at
// the same instant must not materialize it again.
func (r *RecurringTemplate) ProcessedAt(now time.Time) bool {
	return r.LastPassAt != nil && r.LastPassAt.Equal(passInstant(now))
}

// MarkProcessed records that a pass at now handled the template.
func (r *RecurringTemplate) MarkProcessed(now time.Time) {
	at := passInstant(now)
	r.LastPassAt = &at
}

// IsActive reports whether the template has not yet passed its end date at t.
func (r *RecurringTemplate) IsActive(t time.Time) bool {
	return r.EndAt == nil || !t.After(*r.EndAt)
}

// IsDue reports whether an occurrence should be materialized at t.
func (r *RecurringTemplate) IsDue(t time.Time) bool {
	return !r.NextDue.After(t) && r.IsActive(t)
}

// Advance moves NextDue forward by one frequency unit from its current value.
func (r *RecurringTemplate) Advance() {
	r.NextDue = r.Frequency.Next(r.NextDue)
}

// Materialize builds the transaction for the template's current occurrence.
func (r *RecurringTemplate) Materialize(now time.Time) *Transaction {
	templateID := r.ID
	scheduledFor := r.NextDue
	return &Transaction{
		UserID:       r.UserID,
		Category:     r.Category,
		Description:  r.Description + RecurringDescriptionSuffix,
		Amount:       r.Amount,
		OccurredAt:   now,
		Notes:        RecurringNotes,
		IsRecurring:  true,
		TemplateID:   &templateID,
		ScheduledFor: &scheduledFor,
	}
}
