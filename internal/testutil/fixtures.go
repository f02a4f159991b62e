package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"spendcycle/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewOwner returns a unique opaque owner identifier.
func NewOwner() string {
	return fmt.Sprintf("owner-%d", nextID())
}

// Amount parses a decimal literal, failing the test on bad input.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// CreateTestTransaction creates a user-entered transaction.
func CreateTestTransaction(t *testing.T, db *gorm.DB, owner, category, amount string, at time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      owner,
		Category:    category,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Amount:      Amount(t, amount),
		OccurredAt:  at,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestTemplate creates an open-ended recurring template due at nextDue.
func CreateTestTemplate(t *testing.T, db *gorm.DB, owner, category string, freq models.Frequency, nextDue time.Time) *models.RecurringTemplate {
	t.Helper()
	return CreateTestTemplateWithEnd(t, db, owner, category, freq, nextDue, nil)
}

// CreateTestTemplateWithEnd creates a recurring template with an optional end.
func CreateTestTemplateWithEnd(t *testing.T, db *gorm.DB, owner, category string, freq models.Frequency, nextDue time.Time, endAt *time.Time) *models.RecurringTemplate {
	t.Helper()

	tmpl := &models.RecurringTemplate{
		UserID:      owner,
		Category:    category,
		Description: fmt.Sprintf("Test Template %d", nextID()),
		Amount:      decimal.NewFromInt(25),
		StartAt:     nextDue,
		EndAt:       endAt,
		Frequency:   freq,
		NextDue:     nextDue,
	}
	if err := db.Create(tmpl).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	return tmpl
}

// CreateTestBudget creates a monthly budget with a limit of 100 and the
// default threshold.
func CreateTestBudget(t *testing.T, db *gorm.DB, owner, category string, lastReset time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:           owner,
		Category:         category,
		LimitAmount:      decimal.NewFromInt(100),
		CurrentSpent:     decimal.Zero,
		CycleType:        models.CycleMonthly,
		LastReset:        lastReset,
		ThresholdPercent: models.DefaultThresholdPercent,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
