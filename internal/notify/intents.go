// Package notify turns pass outcomes into notification intents and delivers
// them.
package notify

import (
	"fmt"

	"spendcycle/internal/models"

	"github.com/shopspring/decimal"
)

// RecurringInsertedIntent announces a transaction produced from a recurring
// template.
type RecurringInsertedIntent struct {
	Owner       string
	Category    string
	Description string
}

// Title is the notification heading.
func (RecurringInsertedIntent) Title() string { return "Recurring Expense Added" }

// Message is the notification body.
func (i RecurringInsertedIntent) Message() string {
	return fmt.Sprintf("%s added to %s", i.Description, i.Category)
}

// BudgetThresholdIntent announces a budget that reached its alert threshold.
type BudgetThresholdIntent struct {
	Owner    string
	Category string
	Spent    decimal.Decimal
	Limit    decimal.Decimal
}

// Percent is spent/limit as a truncated whole percentage.
func (i BudgetThresholdIntent) Percent() int {
	if !i.Limit.IsPositive() {
		return 0
	}
	return int(i.Spent.Mul(decimal.NewFromInt(100)).Div(i.Limit).IntPart())
}

// Title is the notification heading.
func (BudgetThresholdIntent) Title() string { return "Budget Warning" }

// Message is the notification body.
func (i BudgetThresholdIntent) Message() string {
	return fmt.Sprintf("%s budget is at %d%%", i.Category, i.Percent())
}

// Intents is every notification a pass wants delivered.
type Intents struct {
	RecurringInserted []RecurringInsertedIntent
	BudgetThreshold   []BudgetThresholdIntent
}

// Len returns the total number of intents.
func (i Intents) Len() int {
	return len(i.RecurringInserted) + len(i.BudgetThreshold)
}

// RecurringInserted maps a materialized transaction to its intent.
func RecurringInserted(tx models.Transaction) RecurringInsertedIntent {
	return RecurringInsertedIntent{
		Owner:       tx.UserID,
		Category:    tx.Category,
		Description: tx.Description,
	}
}

// BudgetThreshold maps a budget that crossed its threshold to its intent.
func BudgetThreshold(b models.Budget) BudgetThresholdIntent {
	return BudgetThresholdIntent{
		Owner:    b.UserID,
		Category: b.Category,
		Spent:    b.CurrentSpent,
		Limit:    b.LimitAmount,
	}
}

// FromPass folds a pass outcome into intents, in input order.
func FromPass(materialized []models.Transaction, crossed []models.Budget) Intents {
	var intents Intents
	for _, tx := range materialized {
		intents.RecurringInserted = append(intents.RecurringInserted, RecurringInserted(tx))
	}
	for _, b := range crossed {
		intents.BudgetThreshold = append(intents.BudgetThreshold, BudgetThreshold(b))
	}
	return intents
}
