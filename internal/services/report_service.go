package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
)

// reportService aggregates the ledger for spending reports.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

type categoryTotalRow struct {
	Category string
	Total    decimal.Decimal
	Count    int64
}

// GetCategoryReport totals the user's spending per category within the
// optional window, largest first, and attaches each category's budget state.
func (s *reportService) GetCategoryReport(userID string, from, to *time.Time) (*CategoryReport, error) {
	var rows []categoryTotalRow
	err := s.window(userID, from, to).
		Select("category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("category").
		Order("total DESC, category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := s.db.Where("user_id = ?", userID).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byCategory := make(map[string]models.Budget, len(budgets))
	for _, b := range budgets {
		byCategory[b.Category] = b
	}

	report := &CategoryReport{From: from, To: to, Total: decimal.Zero, Categories: []CategorySummary{}}
	for _, row := range rows {
		report.Total = report.Total.Add(row.Total)
	}

	for _, row := range rows {
		summary := CategorySummary{
			Category:         row.Category,
			Total:            row.Total,
			TransactionCount: row.Count,
		}
		if report.Total.IsPositive() {
			summary.Percentage = int(row.Total.Mul(decimal.NewFromInt(100)).Div(report.Total).IntPart())
		}
		if b, ok := byCategory[row.Category]; ok {
			limit, spent, progress := b.LimitAmount, b.CurrentSpent, b.ProgressPercent()
			summary.BudgetLimit = &limit
			summary.BudgetSpent = &spent
			summary.BudgetProgress = &progress
		}
		report.Categories = append(report.Categories, summary)
	}
	return report, nil
}

// GetCategoryStats describes the distribution of one category's transactions
// within the optional window.
func (s *reportService) GetCategoryStats(userID, category string, from, to *time.Time) (*CategoryStats, error) {
	var row struct {
		Count int64
		Sum   decimal.Decimal
		Min   decimal.Decimal
		Max   decimal.Decimal
	}
	err := s.window(userID, from, to).
		Where("category = ?", category).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum, COALESCE(MIN(amount), 0) AS min, COALESCE(MAX(amount), 0) AS max").
		Scan(&row).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &CategoryStats{
		Category: category,
		Count:    row.Count,
		Sum:      row.Sum,
		Average:  decimal.Zero,
		Min:      row.Min,
		Max:      row.Max,
	}
	if row.Count > 0 {
		stats.Average = row.Sum.Div(decimal.NewFromInt(row.Count)).Round(2)
	}
	return stats, nil
}

func (s *reportService) window(userID string, from, to *time.Time) *gorm.DB {
	q := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("occurred_at >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where("occurred_at <= ?", to.UTC())
	}
	return q
}
