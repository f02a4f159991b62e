package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendcycle/internal/coordinator"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
	"spendcycle/internal/reconcile"
)

// Reconciler recomputes an owner's budgets after the ledger changed.
type Reconciler interface {
	Reconcile(ctx context.Context, owner string, categories []string) (*reconcile.Result, error)
}

// PassRunner triggers a recurring pass for one owner.
type PassRunner interface {
	RunPassNow(ctx context.Context, owner string) (*coordinator.PassReport, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Category  *string
	Recurring *bool
	Sort      TransactionSort
}

// TransactionSort orders a transaction listing, newest or largest first.
// The zero value sorts by date.
type TransactionSort string

const (
	SortByDate   TransactionSort = "date"
	SortByAmount TransactionSort = "amount"
)

// Valid reports whether s is a known sort key or empty.
func (s TransactionSort) Valid() bool {
	return s == "" || s == SortByDate || s == SortByAmount
}

func (s TransactionSort) order() string {
	if s == SortByAmount {
		return "amount DESC, occurred_at DESC, id DESC"
	}
	return "occurred_at DESC, id DESC"
}

// TransactionUpdate holds the user-editable transaction fields; nil leaves a
// field unchanged.
type TransactionUpdate struct {
	Category    *string
	Description *string
	Amount      *decimal.Decimal
	OccurredAt  *time.Time
	Notes       *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, category, description string, amount decimal.Decimal, occurredAt time.Time, notes string) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// BudgetProgress contains spending vs limit for a budget's current cycle.
type BudgetProgress struct {
	BudgetID    string          `json:"budget_id"`
	Category    string          `json:"category"`
	Limit       decimal.Decimal `json:"limit"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percentage  int             `json:"percentage"`
	AtThreshold bool            `json:"at_threshold"`
	OverLimit   bool            `json:"over_limit"`
	CycleEndsAt time.Time       `json:"cycle_ends_at"`
}

// BudgetUpdate holds the user-editable budget fields; nil leaves a field unchanged.
type BudgetUpdate struct {
	LimitAmount      *decimal.Decimal
	ThresholdPercent *int
	CycleType        *models.CycleType
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, category string, limit decimal.Decimal, cycle models.CycleType, thresholdPercent *int) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, cycle *models.CycleType) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
	ReconcileBudgets(userID string) (*reconcile.Result, error)
}

// TemplateUpdate holds the user-editable template fields; nil leaves a field
// unchanged. ClearEndAt makes the template open ended.
type TemplateUpdate struct {
	Category    *string
	Description *string
	Amount      *decimal.Decimal
	Frequency   *models.Frequency
	EndAt       *time.Time
	ClearEndAt  bool
}

// RecurringServicer defines the contract for recurring template business logic.
type RecurringServicer interface {
	CreateTemplate(userID, category, description string, amount decimal.Decimal, frequency models.Frequency, startAt time.Time, endAt *time.Time) (*models.RecurringTemplate, error)
	GetUserTemplates(userID string, page pagination.PageRequest, activeOnly bool) (*pagination.PageResponse[models.RecurringTemplate], error)
	GetTemplateByID(userID, templateID string) (*models.RecurringTemplate, error)
	UpdateTemplate(userID, templateID string, update TemplateUpdate) (*models.RecurringTemplate, error)
	DeleteTemplate(userID, templateID string) error
	RunNow(ctx context.Context, userID string) (*coordinator.PassReport, error)
}

// NotificationServicer defines the contract for the notification inbox.
type NotificationServicer interface {
	GetUserNotifications(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error)
	MarkRead(userID, notificationID string) (*models.Notification, error)
}

// CategorySummary is one category's share of spending in a report window.
type CategorySummary struct {
	Category         string           `json:"category"`
	Total            decimal.Decimal  `json:"total"`
	Percentage       int              `json:"percentage"`
	TransactionCount int64            `json:"transaction_count"`
	BudgetLimit      *decimal.Decimal `json:"budget_limit,omitempty"`
	BudgetSpent      *decimal.Decimal `json:"budget_spent,omitempty"`
	BudgetProgress   *int             `json:"budget_progress,omitempty"`
}

// CategoryReport aggregates spending per category in a report window.
type CategoryReport struct {
	From       *time.Time        `json:"from,omitempty"`
	To         *time.Time        `json:"to,omitempty"`
	Total      decimal.Decimal   `json:"total"`
	Categories []CategorySummary `json:"categories"`
}

// CategoryStats describes the distribution of one category's transactions.
type CategoryStats struct {
	Category string          `json:"category"`
	Count    int64           `json:"count"`
	Sum      decimal.Decimal `json:"sum"`
	Average  decimal.Decimal `json:"average"`
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
}

// ReportServicer defines the contract for spending reports.
type ReportServicer interface {
	GetCategoryReport(userID string, from, to *time.Time) (*CategoryReport, error)
	GetCategoryStats(userID, category string, from, to *time.Time) (*CategoryStats, error)
}

// AuditEntry is one mutation made through the API.
type AuditEntry struct {
	Owner        string
	Actor        string // "user" or "pipeline"
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]any
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(entry AuditEntry)
}
