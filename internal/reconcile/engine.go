// Package reconcile keeps each budget's current-cycle spend consistent with
// the transaction ledger and rolls budgets over when their cycle elapses.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"spendcycle/internal/ledger"
	"spendcycle/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BudgetFailure records a budget that could not be reconciled in this pass.
type BudgetFailure struct {
	BudgetID string
	Category string
	Cause    error
}

func (f BudgetFailure) Error() string {
	return fmt.Sprintf("budget %s (%s): %v", f.BudgetID, f.Category, f.Cause)
}

func (f BudgetFailure) Unwrap() error { return f.Cause }

// Result is the outcome of one Reconcile call.
type Result struct {
	Reset            []models.Budget
	Updated          []models.Budget
	ThresholdCrossed []models.Budget
	Failures         []BudgetFailure
}

// Engine reconciles budgets against the ledger.
type Engine struct {
	store ledger.BudgetStore
	log   *zap.SugaredLogger
}

// NewEngine creates a new Engine.
func NewEngine(store ledger.BudgetStore, log *zap.SugaredLogger) *Engine {
	return &Engine{store: store, log: log}
}

// Reconcile brings the owner's budgets in the given categories up to date at
// now. Nil or empty categories selects every budget of the owner.
//
// A budget whose cycle has elapsed is reset and not summed. Every other
// budget gets its spend recomputed from the ledger, and is reported in
// ThresholdCrossed when the new spend moves it from below its threshold to
// at or above it.
func (e *Engine) Reconcile(ctx context.Context, owner string, categories []string, now time.Time) (*Result, error) {
	budgets, err := e.store.ListBudgets(ctx, owner)
	if err != nil {
		return nil, err
	}
	budgets = selectCategories(budgets, categories)

	result := &Result{}
	var pending []models.Budget
	for i := range budgets {
		budget := budgets[i]
		if !budget.NeedsReset(now) {
			pending = append(pending, budget)
			continue
		}
		budget.Reset(now)
		if err := e.store.UpdateBudget(ctx, &budget); err != nil {
			e.fail(result, &budget, err)
			continue
		}
		result.Reset = append(result.Reset, budget)
	}

	totals := e.batchedTotals(ctx, owner, pending)
	for i := range pending {
		budget := pending[i]
		spent, ok := totals[budget.ID]
		if !ok {
			spent, err = e.store.SumTransactions(ctx, owner, budget.Category, budget.LastReset)
			if err != nil {
				e.fail(result, &budget, err)
				continue
			}
		}
		e.apply(ctx, result, &budget, spent)
	}

	e.log.Infow("budgets reconciled",
		"owner", owner,
		"reset", len(result.Reset),
		"updated", len(result.Updated),
		"crossed", len(result.ThresholdCrossed),
		"failed", len(result.Failures),
	)
	return result, nil
}

func (e *Engine) apply(ctx context.Context, result *Result, budget *models.Budget, spent decimal.Decimal) {
	wasAtThreshold := budget.IsAtThreshold()
	budget.CurrentSpent = spent
	if err := e.store.UpdateBudget(ctx, budget); err != nil {
		e.fail(result, budget, err)
		return
	}
	result.Updated = append(result.Updated, *budget)
	if !wasAtThreshold && budget.IsAtThreshold() {
		result.ThresholdCrossed = append(result.ThresholdCrossed, *budget)
	}
}

// batchedTotals computes spend for every budget with one grouped query when
// more than one budget is pending. The returned map is empty when the grouped
// query fails, so callers fall back to per-budget sums.
func (e *Engine) batchedTotals(ctx context.Context, owner string, budgets []models.Budget) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(budgets))
	if len(budgets) < 2 {
		return totals
	}

	since := budgets[0].LastReset
	categories := make([]string, 0, len(budgets))
	for _, b := range budgets {
		if b.LastReset.Before(since) {
			since = b.LastReset
		}
		categories = append(categories, b.Category)
	}

	buckets, err := e.store.SumByCategorySince(ctx, owner, categories, since)
	if err != nil {
		e.log.Warnw("grouped spend query failed, falling back to per-budget sums",
			"owner", owner,
			"error", err,
		)
		return totals
	}

	for _, b := range budgets {
		total := decimal.Zero
		for _, bucket := range buckets {
			if bucket.Category == b.Category && !bucket.OccurredAt.Before(b.LastReset) {
				total = total.Add(bucket.Total)
			}
		}
		totals[b.ID] = total
	}
	return totals
}

func (e *Engine) fail(result *Result, budget *models.Budget, cause error) {
	e.log.Warnw("budget reconciliation failed",
		"budget_id", budget.ID,
		"category", budget.Category,
		"error", cause,
	)
	result.Failures = append(result.Failures, BudgetFailure{
		BudgetID: budget.ID,
		Category: budget.Category,
		Cause:    cause,
	})
}

func selectCategories(budgets []models.Budget, categories []string) []models.Budget {
	if len(categories) == 0 {
		return budgets
	}
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}
	selected := budgets[:0]
	for _, b := range budgets {
		if _, ok := wanted[b.Category]; ok {
			selected = append(selected, b)
		}
	}
	return selected
}
