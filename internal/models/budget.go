package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultThresholdPercent is the alert threshold used when none is given.
const DefaultThresholdPercent = 80

var hundred = decimal.NewFromInt(100)

// Budget caps spending for one category of one owner over a repeating cycle.
type Budget struct {
	Base
	UserID           string          `gorm:"not null;uniqueIndex:idx_budgets_user_category,priority:1" json:"user_id"`
	Category         string          `gorm:"not null;uniqueIndex:idx_budgets_user_category,priority:2" json:"category"`
	LimitAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"limit_amount"`
	CurrentSpent     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"current_spent"`
	CycleType        CycleType       `gorm:"not null" json:"cycle_type"`
	LastReset        time.Time       `gorm:"not null" json:"last_reset"`
	ThresholdPercent int             `gorm:"not null" json:"threshold_percent"`
}

// NeedsReset reports whether the budget's cycle has elapsed at now.
func (b *Budget) NeedsReset(now time.Time) bool {
	return now.Sub(b.LastReset) >= b.CycleType.Duration()
}

// Reset opens a new cycle starting at now.
func (b *Budget) Reset(now time.Time) {
	b.CurrentSpent = decimal.Zero
	b.LastReset = now
}

// ReachesThreshold reports whether spending the given amount puts the budget
// at or above its alert threshold. The comparison is exact:
// spent*100 >= limit*threshold.
func (b *Budget) ReachesThreshold(spent decimal.Decimal) bool {
	if !b.LimitAmount.IsPositive() {
		return false
	}
	bound := b.LimitAmount.Mul(decimal.NewFromInt(int64(b.ThresholdPercent)))
	return spent.Mul(hundred).GreaterThanOrEqual(bound)
}

// IsAtThreshold reports whether the current spend is at or above the threshold.
func (b *Budget) IsAtThreshold() bool {
	return b.ReachesThreshold(b.CurrentSpent)
}

// ProgressPercent returns spent/limit as a truncated whole percentage.
func (b *Budget) ProgressPercent() int {
	if !b.LimitAmount.IsPositive() {
		return 0
	}
	return int(b.CurrentSpent.Mul(hundred).Div(b.LimitAmount).IntPart())
}

// IsOverLimit reports whether spending exceeds the limit.
func (b *Budget) IsOverLimit() bool {
	return b.CurrentSpent.GreaterThan(b.LimitAmount)
}

// Remaining returns the unspent amount; negative when over the limit.
func (b *Budget) Remaining() decimal.Decimal {
	return b.LimitAmount.Sub(b.CurrentSpent)
}
