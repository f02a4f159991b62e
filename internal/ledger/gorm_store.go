package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendcycle/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStore implements Store on top of GORM. The *gorm.DB must be opened with
// TranslateError so duplicate keys map to gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

const dueCondition = "next_due <= ? AND (end_at IS NULL OR end_at >= ?)"

// FindDueTemplates implements TemplateStore.
func (s *GormStore) FindDueTemplates(ctx context.Context, owner string, asOf time.Time) ([]models.RecurringTemplate, error) {
	asOf = asOf.UTC()

	var templates []models.RecurringTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Where(dueCondition, asOf, asOf).
		Order("next_due ASC, id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("find due templates: %w", err)
	}
	return templates, nil
}

// InsertTransaction implements TemplateStore.
func (s *GormStore) InsertTransaction(ctx context.Context, tx *models.Transaction) (string, error) {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && tx.TemplateID != nil {
			return "", ErrDuplicateOccurrence
		}
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return tx.ID, nil
}

// UpdateTemplate implements TemplateStore. Only the schedule is written so a
// concurrent user edit of the definition is not overwritten.
func (s *GormStore) UpdateTemplate(ctx context.Context, tmpl *models.RecurringTemplate) error {
	result := s.db.WithContext(ctx).
		Model(&models.RecurringTemplate{}).
		Where("id = ? AND user_id = ?", tmpl.ID, tmpl.UserID).
		Updates(map[string]any{
			"next_due":     tmpl.NextDue.UTC(),
			"last_pass_at": tmpl.LastPassAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBudgets implements BudgetStore.
func (s *GormStore) ListBudgets(ctx context.Context, owner string) ([]models.Budget, error) {
	var budgets []models.Budget
	err := s.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("category ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// SumTransactions implements BudgetStore.
func (s *GormStore) SumTransactions(ctx context.Context, owner, category string, since time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND category = ? AND occurred_at >= ?", owner, category, since.UTC()).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return row.Total, nil
}

// SumByCategorySince implements BudgetStore.
func (s *GormStore) SumByCategorySince(ctx context.Context, owner string, categories []string, since time.Time) ([]CategoryBucket, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("category, occurred_at, SUM(amount) AS total").
		Where("user_id = ? AND occurred_at >= ?", owner, since.UTC())
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}

	var buckets []CategoryBucket
	if err := query.Group("category, occurred_at").Scan(&buckets).Error; err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	return buckets, nil
}

// UpdateBudget implements BudgetStore. Limit and threshold belong to the
// owner and are left untouched.
func (s *GormStore) UpdateBudget(ctx context.Context, budget *models.Budget) error {
	result := s.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ? AND user_id = ?", budget.ID, budget.UserID).
		Updates(map[string]interface{}{
			"current_spent": budget.CurrentSpent,
			"last_reset":    budget.LastReset.UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("update budget: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOwnersWithDueTemplates implements Store.
func (s *GormStore) ListOwnersWithDueTemplates(ctx context.Context, asOf time.Time) ([]string, error) {
	asOf = asOf.UTC()

	var owners []string
	err := s.db.WithContext(ctx).
		Model(&models.RecurringTemplate{}).
		Where(dueCondition, asOf, asOf).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &owners).Error
	if err != nil {
		return nil, fmt.Errorf("list owners with due templates: %w", err)
	}
	return owners, nil
}
