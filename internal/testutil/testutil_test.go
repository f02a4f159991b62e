package testutil_test

import (
	"testing"
	"time"

	"spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"transactions", "recurring_templates", "budgets", "notifications", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	owner := testutil.NewOwner()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tx := testutil.CreateTestTransaction(t, db, owner, "Food", "12.50", now)
	if tx.ID == "" {
		t.Fatal("transaction should have an id")
	}
	testutil.AssertDecimal(t, tx.Amount, "12.5")

	tmpl := testutil.CreateTestTemplate(t, db, owner, "Rent", models.FrequencyMonthly, now)
	if !tmpl.NextDue.Equal(tmpl.StartAt) {
		t.Error("template next due should start at its start instant")
	}

	budget := testutil.CreateTestBudget(t, db, owner, "Food", now)
	if budget.ThresholdPercent != models.DefaultThresholdPercent {
		t.Errorf("expected default threshold, got %d", budget.ThresholdPercent)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrBudgetNotFound, "custom message")
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
