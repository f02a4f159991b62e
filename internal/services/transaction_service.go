package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendcycle/internal/clock"
	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db         *gorm.DB
	clock      clock.Clock
	reconciler Reconciler
}

// NewTransactionService creates a new TransactionServicer. Every mutation
// reconciles the budgets of the categories it touches.
func NewTransactionService(db *gorm.DB, clk clock.Clock, reconciler Reconciler) TransactionServicer {
	return &transactionService{
		db:         db,
		clock:      clk,
		reconciler: reconciler,
	}
}

// CreateTransaction records a user-entered transaction.
func (s *transactionService) CreateTransaction(
	userID, category, description string,
	amount decimal.Decimal,
	occurredAt time.Time,
	notes string,
) (*models.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if amount.IsNegative() {
		return nil, apperrors.ErrNegativeAmount
	}

	// Default date to now if not provided
	if occurredAt.IsZero() {
		occurredAt = s.clock.Now()
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Category:    category,
		Description: description,
		Amount:      amount,
		OccurredAt:  occurredAt.UTC(),
		Notes:       notes,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	reconcileAfterWrite(s.reconciler, userID, category)
	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)
	if !filter.Sort.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sort must be date or amount")
	}

	result, err := pagination.List[models.Transaction](base, page, filter.Sort.order())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("occurred_at >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("occurred_at <= ?", f.ToDate.UTC())
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.Recurring != nil {
		q = q.Where("is_recurring = ?", *f.Recurring)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies a user edit. Both the old and the new category
// are reconciled when the category changes.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	previousCategory := transaction.Category
	newCategory := previousCategory

	updates := make(map[string]interface{})
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category must not be empty")
		}
		updates["category"] = category
		newCategory = category
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
	if update.OccurredAt != nil {
		updates["occurred_at"] = update.OccurredAt.UTC()
	}
	if update.Notes != nil {
		updates["notes"] = *update.Notes
	}

	if len(updates) == 0 {
		return transaction, nil
	}
	if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	reconcileAfterWrite(s.reconciler, userID, previousCategory, newCategory)
	return transaction, nil
}

// DeleteTransaction deletes a transaction and reconciles its category.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	reconcileAfterWrite(s.reconciler, userID, transaction.Category)
	return nil
}
