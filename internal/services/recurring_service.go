package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendcycle/internal/clock"
	"spendcycle/internal/coordinator"
	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
)

// recurringService handles recurring template business logic.
type recurringService struct {
	db     *gorm.DB
	clock  clock.Clock
	runner PassRunner
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, clk clock.Clock, runner PassRunner) RecurringServicer {
	return &recurringService{db: db, clock: clk, runner: runner}
}

// CreateTemplate stores a template whose first occurrence is due at startAt.
func (s *recurringService) CreateTemplate(
	userID, category, description string,
	amount decimal.Decimal,
	frequency models.Frequency,
	startAt time.Time,
	endAt *time.Time,
) (*models.RecurringTemplate, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if amount.IsNegative() {
		return nil, apperrors.ErrNegativeAmount
	}
	if !frequency.Valid() {
		return nil, apperrors.ErrInvalidFrequency
	}
	if startAt.IsZero() {
		startAt = s.clock.Now()
	}
	startAt = startAt.UTC()
	if endAt != nil {
		end := endAt.UTC()
		if end.Before(startAt) {
			return nil, apperrors.ErrInvalidDateWindow
		}
		endAt = &end
	}

	tmpl := &models.RecurringTemplate{
		UserID:      userID,
		Category:    category,
		Description: description,
		Amount:      amount,
		StartAt:     startAt,
		EndAt:       endAt,
		Frequency:   frequency,
		NextDue:     startAt,
	}
	if err := s.db.Create(tmpl).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tmpl, nil
}

// GetUserTemplates lists the user's templates, soonest due first. activeOnly
// hides templates whose end date has passed.
func (s *recurringService) GetUserTemplates(userID string, page pagination.PageRequest, activeOnly bool) (*pagination.PageResponse[models.RecurringTemplate], error) {
	base := s.db.Model(&models.RecurringTemplate{}).Where("user_id = ?", userID)
	if activeOnly {
		base = base.Where("end_at IS NULL OR end_at >= ?", s.clock.Now().UTC())
	}

	result, err := pagination.List[models.RecurringTemplate](base, page, "next_due ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetTemplateByID returns a template by ID if it belongs to the user.
func (s *recurringService) GetTemplateByID(userID, templateID string) (*models.RecurringTemplate, error) {
	var tmpl models.RecurringTemplate
	if err := s.db.Where("id = ? AND user_id = ?", templateID, userID).First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tmpl, nil
}

// UpdateTemplate edits a template's definition. The schedule (next due) is
// left alone; a new frequency applies from the next advancement.
func (s *recurringService) UpdateTemplate(userID, templateID string, update TemplateUpdate) (*models.RecurringTemplate, error) {
	tmpl, err := s.GetTemplateByID(userID, templateID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category must not be empty")
		}
		updates["category"] = category
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Amount != nil {
		if update.Amount.IsNegative() {
			return nil, apperrors.ErrNegativeAmount
		}
		updates["amount"] = *update.Amount
	}
	if update.Frequency != nil {
		if !update.Frequency.Valid() {
			return nil, apperrors.ErrInvalidFrequency
		}
		updates["frequency"] = *update.Frequency
	}
	switch {
	case update.ClearEndAt:
		updates["end_at"] = nil
	case update.EndAt != nil:
		end := update.EndAt.UTC()
		if end.Before(tmpl.StartAt) {
			return nil, apperrors.ErrInvalidDateWindow
		}
		updates["end_at"] = end
	}

	if len(updates) == 0 {
		return tmpl, nil
	}
	if err := s.db.Model(tmpl).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetTemplateByID(userID, templateID)
}

// DeleteTemplate soft-deletes a template. Transactions it produced stay in the ledger.
func (s *recurringService) DeleteTemplate(userID, templateID string) error {
	tmpl, err := s.GetTemplateByID(userID, templateID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(tmpl).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RunNow runs a recurring pass for the user immediately.
func (s *recurringService) RunNow(ctx context.Context, userID string) (*coordinator.PassReport, error) {
	report, err := s.runner.RunPassNow(ctx, userID)
	if err != nil {
		if errors.Is(err, coordinator.ErrPassAborted) {
			return nil, apperrors.Wrap(apperrors.ErrPassAborted, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return report, nil
}
