// Package ledger defines the storage contract the recurring and
// reconciliation engines consume, and a GORM implementation of it.
package ledger

import (
	"context"
	"errors"
	"time"

	"spendcycle/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateOccurrence is returned by InsertTransaction when the
	// template occurrence has already been materialized.
	ErrDuplicateOccurrence = errors.New("ledger: occurrence already materialized")
	// ErrNotFound is returned when an update targets a row that no longer exists.
	ErrNotFound = errors.New("ledger: record not found")
)

// CategoryBucket is one row of a grouped spend aggregation: the total spent
// in a category at one occurrence instant.
type CategoryBucket struct {
	Category   string
	OccurredAt time.Time
	Total      decimal.Decimal
}

// TemplateStore is the part of the ledger used by the recurring engine.
type TemplateStore interface {
	// FindDueTemplates returns the owner's templates with next_due <= asOf
	// that have not ended before asOf, earliest due first, ties by id.
	FindDueTemplates(ctx context.Context, owner string, asOf time.Time) ([]models.RecurringTemplate, error)
	// InsertTransaction persists tx and returns its id.
	InsertTransaction(ctx context.Context, tx *models.Transaction) (string, error)
	// UpdateTemplate persists the template's schedule.
	UpdateTemplate(ctx context.Context, tmpl *models.RecurringTemplate) error
}

// BudgetStore is the part of the ledger used by the reconciliation engine.
type BudgetStore interface {
	ListBudgets(ctx context.Context, owner string) ([]models.Budget, error)
	// SumTransactions totals the owner's spend in category with occurred_at >= since.
	SumTransactions(ctx context.Context, owner, category string, since time.Time) (decimal.Decimal, error)
	// SumByCategorySince groups the owner's spend with occurred_at >= since by
	// category and occurrence instant. Empty categories means all categories.
	SumByCategorySince(ctx context.Context, owner string, categories []string, since time.Time) ([]CategoryBucket, error)
	// UpdateBudget persists the budget's spent total and cycle anchor.
	UpdateBudget(ctx context.Context, budget *models.Budget) error
}

// Store is the full ledger contract.
type Store interface {
	TemplateStore
	BudgetStore
	// ListOwnersWithDueTemplates returns every owner with at least one due template.
	ListOwnersWithDueTemplates(ctx context.Context, asOf time.Time) ([]string, error)
}
