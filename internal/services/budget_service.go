package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendcycle/internal/clock"
	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
	"spendcycle/internal/reconcile"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db         *gorm.DB
	clock      clock.Clock
	reconciler Reconciler
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, clk clock.Clock, reconciler Reconciler) BudgetServicer {
	return &budgetService{db: db, clock: clk, reconciler: reconciler}
}

// CreateBudget opens a budget for a category, starting its first cycle now.
// A nil threshold uses the default alert threshold.
func (s *budgetService) CreateBudget(
	userID, category string,
	limit decimal.Decimal,
	cycle models.CycleType,
	thresholdPercent *int,
) (*models.Budget, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if !limit.IsPositive() {
		return nil, apperrors.ErrInvalidLimit
	}
	if !cycle.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cycle_type must be DAILY, WEEKLY or MONTHLY")
	}
	threshold := models.DefaultThresholdPercent
	if thresholdPercent != nil {
		threshold = *thresholdPercent
	}
	if threshold < 0 || threshold > 100 {
		return nil, apperrors.ErrInvalidThreshold
	}

	budget := &models.Budget{
		UserID:           userID,
		Category:         category,
		LimitAmount:      limit,
		CurrentSpent:     decimal.Zero,
		CycleType:        cycle,
		LastReset:        s.clock.Now().UTC(),
		ThresholdPercent: threshold,
	}

	if err := s.db.Create(budget).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Spend already dated inside the new cycle counts from the start.
	reconcileAfterWrite(s.reconciler, userID, category)
	return s.GetBudgetByID(userID, budget.ID)
}

// GetUserBudgets returns a paginated list of budgets for the user with an optional cycle filter.
func (s *budgetService) GetUserBudgets(
	userID string,
	page pagination.PageRequest,
	cycle *models.CycleType,
) (*pagination.PageResponse[models.Budget], error) {
	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if cycle != nil {
		base = base.Where("cycle_type = ?", *cycle)
	}

	result, err := pagination.List[models.Budget](base, page, "category ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget changes the limit, threshold or cycle of a budget and then
// reconciles it so its spend and threshold state reflect the new settings.
func (s *budgetService) UpdateBudget(userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.LimitAmount != nil {
		if !update.LimitAmount.IsPositive() {
			return nil, apperrors.ErrInvalidLimit
		}
		updates["limit_amount"] = *update.LimitAmount
	}
	if update.ThresholdPercent != nil {
		if *update.ThresholdPercent < 0 || *update.ThresholdPercent > 100 {
			return nil, apperrors.ErrInvalidThreshold
		}
		updates["threshold_percent"] = *update.ThresholdPercent
	}
	if update.CycleType != nil {
		if !update.CycleType.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cycle_type must be DAILY, WEEKLY or MONTHLY")
		}
		updates["cycle_type"] = *update.CycleType
	}

	if len(updates) == 0 {
		return budget, nil
	}
	if err := s.db.Model(budget).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	reconcileAfterWrite(s.reconciler, userID, budget.Category)
	return s.GetBudgetByID(userID, budgetID)
}

// DeleteBudget permanently removes a budget so the category can be budgeted again.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Unscoped().Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress reports spending vs limit for the budget's current cycle.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		Category:    budget.Category,
		Limit:       budget.LimitAmount,
		Spent:       budget.CurrentSpent,
		Remaining:   budget.Remaining(),
		Percentage:  budget.ProgressPercent(),
		AtThreshold: budget.IsAtThreshold(),
		OverLimit:   budget.IsOverLimit(),
		CycleEndsAt: budget.LastReset.Add(budget.CycleType.Duration()),
	}, nil
}

// ReconcileBudgets reconciles every budget of the user.
func (s *budgetService) ReconcileBudgets(userID string) (*reconcile.Result, error) {
	result, err := s.reconciler.Reconcile(context.Background(), userID, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPassAborted, err)
	}
	return result, nil
}
