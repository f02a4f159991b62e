package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendcycle/internal/models"
	"spendcycle/internal/testutil"

	"github.com/shopspring/decimal"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestFindDueTemplates(t *testing.T) {
	t.Run("due_ordered_and_filtered", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewGormStore(db)
		owner := testutil.NewOwner()
		other := testutil.NewOwner()

		late := testutil.CreateTestTemplate(t, db, owner, "Rent", models.FrequencyMonthly, now.Add(-time.Hour))
		early := testutil.CreateTestTemplate(t, db, owner, "Gym", models.FrequencyWeekly, now.AddDate(0, 0, -10))
		exact := testutil.CreateTestTemplate(t, db, owner, "News", models.FrequencyDaily, now)
		testutil.CreateTestTemplate(t, db, owner, "Future", models.FrequencyDaily, now.Add(time.Minute))
		yesterday := now.AddDate(0, 0, -1)
		testutil.CreateTestTemplateWithEnd(t, db, owner, "Ended", models.FrequencyDaily, now, &yesterday)
		testutil.CreateTestTemplate(t, db, other, "Rent", models.FrequencyMonthly, now.AddDate(0, -1, 0))

		due, err := store.FindDueTemplates(context.Background(), owner, now)
		testutil.AssertNoError(t, err)

		if len(due) != 3 {
			t.Fatalf("expected 3 due templates, got %d", len(due))
		}
		want := []string{early.ID, late.ID, exact.ID}
		for i, id := range want {
			if due[i].ID != id {
				t.Errorf("position %d: expected %s, got %s (%s)", i, id, due[i].ID, due[i].Category)
			}
		}
	})

	t.Run("ties_broken_by_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewGormStore(db)
		owner := testutil.NewOwner()

		first := testutil.CreateTestTemplate(t, db, owner, "A", models.FrequencyDaily, now.Add(-time.Hour))
		second := testutil.CreateTestTemplate(t, db, owner, "B", models.FrequencyDaily, now.Add(-time.Hour))

		due, err := store.FindDueTemplates(context.Background(), owner, now)
		testutil.AssertNoError(t, err)
		if len(due) != 2 || due[0].ID != first.ID || due[1].ID != second.ID {
			t.Fatalf("expected id order %s, %s", first.ID, second.ID)
		}
	})

	t.Run("excludes_soft_deleted", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewGormStore(db)
		owner := testutil.NewOwner()

		tmpl := testutil.CreateTestTemplate(t, db, owner, "Rent", models.FrequencyMonthly, now)
		if err := db.Delete(tmpl).Error; err != nil {
			t.Fatalf("failed to delete template: %v", err)
		}

		due, err := store.FindDueTemplates(context.Background(), owner, now)
		testutil.AssertNoError(t, err)
		if len(due) != 0 {
			t.Errorf("expected deleted template to be skipped, got %d", len(due))
		}
	})
}

func TestInsertTransaction(t *testing.T) {
	t.Run("duplicate_occurrence", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewGormStore(db)
		owner := testutil.NewOwner()
		tmpl := testutil.CreateTestTemplate(t, db, owner, "Rent", models.FrequencyMonthly, now)

		id, err := store.InsertTransaction(context.Background(), tmpl.Materialize(now))
		testutil.AssertNoError(t, err)
		if id == "" {
			t.Fatal("expected transaction id")
		}

		_, err = store.InsertTransaction(context.Background(), tmpl.Materialize(now.Add(time.Hour)))
		if !errors.Is(err, ErrDuplicateOccurrence) {
			t.Fatalf("expected ErrDuplicateOccurrence, got %v", err)
		}

		tmpl.Advance()
		_, err = store.InsertTransaction(context.Background(), tmpl.Materialize(now.Add(time.Hour)))
		testutil.AssertNoError(t, err)
	})

	t.Run("manual_transactions_have_no_occurrence_key", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewGormStore(db)
		owner := testutil.NewOwner()

		for i := 0; i < 2; i++ {
			_, err := store.InsertTransaction(context.Background(), &models.Transaction{
				UserID:      owner,
				Category:    "Food",
				Description: "Lunch",
				Amount:      decimal.NewFromInt(12),
				OccurredAt:  now,
			})
			testutil.AssertNoError(t, err)
		}
	})
}

func TestUpdateTemplate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewGormStore(db)
	owner := testutil.NewOwner()
	tmpl := testutil.CreateTestTemplate(t, db, owner, "Rent", models.FrequencyMonthly, now)

	tmpl.Advance()
	tmpl.MarkProcessed(now.Add(123 * time.Nanosecond))
	testutil.AssertNoError(t, store.UpdateTemplate(context.Background(), tmpl))

	var reloaded models.RecurringTemplate
	if err := db.First(&reloaded, "id = ?", tmpl.ID).Error; err != nil {
		t.Fatalf("failed to reload template: %v", err)
	}
	if !reloaded.NextDue.Equal(now.AddDate(0, 1, 0)) {
		t.Errorf("expected next due %s, got %s", now.AddDate(0, 1, 0), reloaded.NextDue)
	}
	if !reloaded.ProcessedAt(now.Add(123 * time.Nanosecond)) {
		t.Errorf("expected last pass instant to round-trip, got %v", reloaded.LastPassAt)
	}

	wrongOwner := *tmpl
	wrongOwner.UserID = testutil.NewOwner()
	if err := store.UpdateTemplate(context.Background(), &wrongOwner); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another owner's template, got %v", err)
	}
}

func TestSumTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewGormStore(db)
	owner := testutil.NewOwner()
	since := now.AddDate(0, 0, -7)

	testutil.CreateTestTransaction(t, db, owner, "Food", "10.25", since)
	testutil.CreateTestTransaction(t, db, owner, "Food", "4.75", now)
	testutil.CreateTestTransaction(t, db, owner, "Food", "100", since.Add(-time.Second))
	testutil.CreateTestTransaction(t, db, owner, "Travel", "50", now)
	testutil.CreateTestTransaction(t, db, testutil.NewOwner(), "Food", "70", now)
	deleted := testutil.CreateTestTransaction(t, db, owner, "Food", "1000", now)
	if err := db.Delete(deleted).Error; err != nil {
		t.Fatalf("failed to delete transaction: %v", err)
	}

	total, err := store.SumTransactions(context.Background(), owner, "Food", since)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, total, "15")

	empty, err := store.SumTransactions(context.Background(), owner, "Nothing", since)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, empty, "0")
}

func TestSumByCategorySince(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewGormStore(db)
	owner := testutil.NewOwner()
	since := now.AddDate(0, 0, -7)

	testutil.CreateTestTransaction(t, db, owner, "Food", "10", since)
	testutil.CreateTestTransaction(t, db, owner, "Food", "5", since)
	testutil.CreateTestTransaction(t, db, owner, "Food", "7", now)
	testutil.CreateTestTransaction(t, db, owner, "Travel", "50", now)
	testutil.CreateTestTransaction(t, db, owner, "Gifts", "30", now)
	testutil.CreateTestTransaction(t, db, owner, "Food", "99", since.Add(-time.Hour))

	buckets, err := store.SumByCategorySince(context.Background(), owner, []string{"Food", "Travel"}, since)
	testutil.AssertNoError(t, err)

	totals := map[string]decimal.Decimal{}
	for _, b := range buckets {
		totals[b.Category] = totals[b.Category].Add(b.Total)
		if b.OccurredAt.Before(since) {
			t.Errorf("bucket %s at %s is before the lower bound", b.Category, b.OccurredAt)
		}
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 categories, got %v", totals)
	}
	testutil.AssertDecimal(t, totals["Food"], "22")
	testutil.AssertDecimal(t, totals["Travel"], "50")

	all, err := store.SumByCategorySince(context.Background(), owner, nil, since)
	testutil.AssertNoError(t, err)
	seen := map[string]bool{}
	for _, b := range all {
		seen[b.Category] = true
	}
	if !seen["Gifts"] {
		t.Error("expected all categories when none are given")
	}
}

func TestUpdateBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewGormStore(db)
	owner := testutil.NewOwner()
	budget := testutil.CreateTestBudget(t, db, owner, "Food", now.AddDate(0, 0, -40))

	budget.CurrentSpent = decimal.RequireFromString("42.50")
	budget.LastReset = now
	budget.LimitAmount = decimal.NewFromInt(1)
	testutil.AssertNoError(t, store.UpdateBudget(context.Background(), budget))

	budgets, err := store.ListBudgets(context.Background(), owner)
	testutil.AssertNoError(t, err)
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(budgets))
	}
	testutil.AssertDecimal(t, budgets[0].CurrentSpent, "42.5")
	testutil.AssertDecimal(t, budgets[0].LimitAmount, "100")
	if !budgets[0].LastReset.Equal(now) {
		t.Errorf("expected last reset %s, got %s", now, budgets[0].LastReset)
	}

	budget.ID = "0190f5a2-7b3c-7d4e-8f90-a1b2c3d4e5f6"
	if err := store.UpdateBudget(context.Background(), budget); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOwnersWithDueTemplates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewGormStore(db)
	a := testutil.NewOwner()
	b := testutil.NewOwner()
	c := testutil.NewOwner()

	testutil.CreateTestTemplate(t, db, a, "Rent", models.FrequencyMonthly, now)
	testutil.CreateTestTemplate(t, db, a, "Gym", models.FrequencyMonthly, now)
	testutil.CreateTestTemplate(t, db, b, "Rent", models.FrequencyMonthly, now.AddDate(0, 0, -3))
	testutil.CreateTestTemplate(t, db, c, "Rent", models.FrequencyMonthly, now.AddDate(0, 0, 3))

	owners, err := store.ListOwnersWithDueTemplates(context.Background(), now)
	testutil.AssertNoError(t, err)
	if len(owners) != 2 {
		t.Fatalf("expected 2 owners, got %v", owners)
	}
	got := map[string]bool{owners[0]: true, owners[1]: true}
	if !got[a] || !got[b] {
		t.Errorf("expected owners %s and %s, got %v", a, b, owners)
	}
}
