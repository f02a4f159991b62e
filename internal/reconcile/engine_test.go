package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendcycle/internal/ledger"
	"spendcycle/internal/ledger/memstore"
	"spendcycle/internal/models"
	"spendcycle/internal/testutil"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newBudget(owner, category string, limit int64, spent string, lastReset time.Time) models.Budget {
	return models.Budget{
		UserID:           owner,
		Category:         category,
		LimitAmount:      decimal.NewFromInt(limit),
		CurrentSpent:     decimal.RequireFromString(spent),
		CycleType:        models.CycleMonthly,
		LastReset:        lastReset,
		ThresholdPercent: models.DefaultThresholdPercent,
	}
}

func spend(store *memstore.Store, owner, category, amount string, at time.Time) {
	store.AddTransaction(models.Transaction{
		UserID:     owner,
		Category:   category,
		Amount:     decimal.RequireFromString(amount),
		OccurredAt: at,
	})
}

func newEngine(store ledger.BudgetStore) *Engine {
	return NewEngine(store, zap.NewNop().Sugar())
}

func TestReconcile_ThresholdCrossing(t *testing.T) {
	tests := []struct {
		name        string
		stored      string
		ledger      []string
		wantSpent   string
		wantCrossed bool
	}{
		{"crosses_from_70_to_85", "70", []string{"70", "15"}, "85", true},
		{"already_above_stays_above", "85", []string{"85", "5"}, "90", false},
		{"lands_exactly_on_threshold", "79.99", []string{"79.99", "0.01"}, "80", true},
		{"stays_below", "10", []string{"10", "20"}, "30", false},
		{"drops_below_after_edit", "90", []string{"40"}, "40", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			lastReset := now.AddDate(0, 0, -5)
			budget := store.AddBudget(newBudget("owner", "Food", 100, tt.stored, lastReset))
			for i, amount := range tt.ledger {
				spend(store, "owner", "Food", amount, lastReset.Add(time.Duration(i+1)*time.Hour))
			}

			result, err := newEngine(store).Reconcile(context.Background(), "owner", []string{"Food"}, now)
			testutil.AssertNoError(t, err)

			testutil.AssertDecimal(t, store.Budget(budget.ID).CurrentSpent, tt.wantSpent)
			if crossed := len(result.ThresholdCrossed) == 1; crossed != tt.wantCrossed {
				t.Errorf("expected crossed=%v, got %d crossings", tt.wantCrossed, len(result.ThresholdCrossed))
			}
			if len(result.Updated) != 1 {
				t.Errorf("expected one updated budget, got %d", len(result.Updated))
			}
		})
	}
}

func TestReconcile_MonthlyCycleReset(t *testing.T) {
	store := memstore.New()
	lastReset := now.AddDate(0, 0, -31)
	budget := store.AddBudget(newBudget("owner", "Food", 100, "95", lastReset))
	spend(store, "owner", "Food", "95", lastReset.Add(time.Hour))

	result, err := newEngine(store).Reconcile(context.Background(), "owner", nil, now)
	testutil.AssertNoError(t, err)

	stored := store.Budget(budget.ID)
	testutil.AssertDecimal(t, stored.CurrentSpent, "0")
	if !stored.LastReset.Equal(now) {
		t.Errorf("expected last reset %s, got %s", now, stored.LastReset)
	}
	if len(result.Reset) != 1 || len(result.Updated) != 0 || len(result.ThresholdCrossed) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if store.SumCalls != 0 {
		t.Errorf("a reset budget must not be summed, got %d sums", store.SumCalls)
	}
}

func TestReconcile_CycleBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		cycle     models.CycleType
		age       time.Duration
		wantReset bool
	}{
		{"daily_just_before", models.CycleDaily, 24*time.Hour - time.Second, false},
		{"daily_exactly", models.CycleDaily, 24 * time.Hour, true},
		{"weekly_six_days", models.CycleWeekly, 6 * 24 * time.Hour, false},
		{"weekly_seven_days", models.CycleWeekly, 7 * 24 * time.Hour, true},
		{"monthly_29_days", models.CycleMonthly, 29 * 24 * time.Hour, false},
		{"monthly_30_days", models.CycleMonthly, 30 * 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			b := newBudget("owner", "Food", 100, "0", now.Add(-tt.age))
			b.CycleType = tt.cycle
			store.AddBudget(b)

			result, err := newEngine(store).Reconcile(context.Background(), "owner", nil, now)
			testutil.AssertNoError(t, err)
			if got := len(result.Reset) == 1; got != tt.wantReset {
				t.Errorf("expected reset=%v, got %+v", tt.wantReset, result)
			}
		})
	}
}

func TestReconcile_CategoryFilter(t *testing.T) {
	store := memstore.New()
	lastReset := now.AddDate(0, 0, -2)
	food := store.AddBudget(newBudget("owner", "Food", 100, "0", lastReset))
	rent := store.AddBudget(newBudget("owner", "Rent", 1000, "0", lastReset))
	spend(store, "owner", "Food", "12", now.Add(-time.Hour))
	spend(store, "owner", "Rent", "500", now.Add(-time.Hour))

	_, err := newEngine(store).Reconcile(context.Background(), "owner", []string{"Food"}, now)
	testutil.AssertNoError(t, err)

	testutil.AssertDecimal(t, store.Budget(food.ID).CurrentSpent, "12")
	testutil.AssertDecimal(t, store.Budget(rent.ID).CurrentSpent, "0")
}

func TestReconcile_BatchedMatchesPerBudget(t *testing.T) {
	seed := func() *memstore.Store {
		store := memstore.New()
		// Food was reset recently; Rent has a long-running cycle. A grouped
		// sum bounded by the earliest reset must not leak old Food spend.
		store.AddBudget(newBudget("owner", "Food", 100, "0", now.AddDate(0, 0, -2)))
		store.AddBudget(newBudget("owner", "Rent", 1000, "0", now.AddDate(0, 0, -20)))
		store.AddBudget(newBudget("owner", "Fun", 50, "0", now.AddDate(0, 0, -10)))
		spend(store, "owner", "Food", "60", now.AddDate(0, 0, -5))
		spend(store, "owner", "Food", "15.50", now.AddDate(0, 0, -1))
		spend(store, "owner", "Food", "4.50", now.AddDate(0, 0, -1))
		spend(store, "owner", "Rent", "800", now.AddDate(0, 0, -15))
		spend(store, "owner", "Fun", "45", now.AddDate(0, 0, -3))
		spend(store, "someone-else", "Food", "999", now.AddDate(0, 0, -1))
		return store
	}

	batchedStore := seed()
	batched, err := newEngine(batchedStore).Reconcile(context.Background(), "owner", nil, now)
	testutil.AssertNoError(t, err)
	if batchedStore.GroupedCalls != 1 || batchedStore.SumCalls != 0 {
		t.Fatalf("expected one grouped query, got grouped=%d sums=%d", batchedStore.GroupedCalls, batchedStore.SumCalls)
	}

	fallbackStore := seed()
	fallbackStore.FailGrouped = func() error { return errors.New("grouping unsupported") }
	perBudget, err := newEngine(fallbackStore).Reconcile(context.Background(), "owner", nil, now)
	testutil.AssertNoError(t, err)
	if fallbackStore.SumCalls != 3 {
		t.Fatalf("expected per-budget fallback sums, got %d", fallbackStore.SumCalls)
	}

	want := map[string]string{"Food": "20", "Rent": "800", "Fun": "45"}
	for _, results := range [][]models.Budget{batched.Updated, perBudget.Updated} {
		if len(results) != len(want) {
			t.Fatalf("expected %d updated budgets, got %d", len(want), len(results))
		}
		for _, b := range results {
			testutil.AssertDecimal(t, b.CurrentSpent, want[b.Category])
		}
	}
	if len(batched.ThresholdCrossed) != len(perBudget.ThresholdCrossed) {
		t.Errorf("batched and per-budget crossings differ: %d vs %d",
			len(batched.ThresholdCrossed), len(perBudget.ThresholdCrossed))
	}
}

func TestReconcile_FailureIsolation(t *testing.T) {
	store := memstore.New()
	lastReset := now.AddDate(0, 0, -2)
	broken := store.AddBudget(newBudget("owner", "Broken", 100, "0", lastReset))
	healthy := store.AddBudget(newBudget("owner", "Healthy", 100, "0", lastReset))
	spend(store, "owner", "Healthy", "30", now.Add(-time.Hour))
	boom := errors.New("write failed")
	store.FailUpdateBudget = func(b *models.Budget) error {
		if b.ID == broken.ID {
			return boom
		}
		return nil
	}

	result, err := newEngine(store).Reconcile(context.Background(), "owner", nil, now)
	testutil.AssertNoError(t, err)

	if len(result.Failures) != 1 || result.Failures[0].BudgetID != broken.ID {
		t.Fatalf("expected one failure for %s, got %+v", broken.ID, result.Failures)
	}
	if !errors.Is(result.Failures[0], boom) {
		t.Error("expected failure to wrap the store error")
	}
	testutil.AssertDecimal(t, store.Budget(healthy.ID).CurrentSpent, "30")
}

func TestReconcile_SumFailureIsolation(t *testing.T) {
	store := memstore.New()
	store.AddBudget(newBudget("owner", "Food", 100, "0", now.AddDate(0, 0, -1)))
	store.FailSum = func(string) error { return errors.New("timeout") }

	result, err := newEngine(store).Reconcile(context.Background(), "owner", nil, now)
	testutil.AssertNoError(t, err)
	if len(result.Failures) != 1 || len(result.Updated) != 0 {
		t.Errorf("expected one failure and no updates, got %+v", result)
	}
}

func TestReconcile_ListFailure(t *testing.T) {
	store := memstore.New()
	store.FailListBudgets = func(string) error { return errors.New("unreachable") }

	result, err := newEngine(store).Reconcile(context.Background(), "owner", nil, now)
	if err == nil || result != nil {
		t.Fatal("expected listing failure to be returned")
	}
}

func TestReconcile_GormStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	owner := testutil.NewOwner()

	lastReset := now.AddDate(0, 0, -3)
	food := testutil.CreateTestBudget(t, db, owner, "Food", lastReset)
	rent := testutil.CreateTestBudget(t, db, owner, "Rent", now.AddDate(0, 0, -40))
	testutil.CreateTestTransaction(t, db, owner, "Food", "50", now.AddDate(0, 0, -4))
	testutil.CreateTestTransaction(t, db, owner, "Food", "45.25", now.AddDate(0, 0, -1))
	testutil.CreateTestTransaction(t, db, owner, "Food", "40", now.AddDate(0, 0, -1))

	result, err := newEngine(ledger.NewGormStore(db)).Reconcile(context.Background(), owner, nil, now)
	testutil.AssertNoError(t, err)

	if len(result.Reset) != 1 || result.Reset[0].ID != rent.ID {
		t.Errorf("expected rent budget reset, got %+v", result.Reset)
	}
	if len(result.ThresholdCrossed) != 1 || result.ThresholdCrossed[0].ID != food.ID {
		t.Errorf("expected food budget to cross its threshold, got %+v", result.ThresholdCrossed)
	}

	var reloaded models.Budget
	if err := db.First(&reloaded, "id = ?", food.ID).Error; err != nil {
		t.Fatalf("failed to reload budget: %v", err)
	}
	testutil.AssertDecimal(t, reloaded.CurrentSpent, "85.25")
}
