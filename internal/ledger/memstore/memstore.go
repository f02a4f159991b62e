// Package memstore is an in-memory ledger.Store with failure injection,
// used to exercise the engines without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spendcycle/internal/ledger"
	"spendcycle/internal/models"

	"github.com/shopspring/decimal"
)

// Store is a concurrency-safe in-memory ledger.
type Store struct {
	mu           sync.Mutex
	seq          int
	transactions []models.Transaction
	templates    map[string]*models.RecurringTemplate
	budgets      map[string]*models.Budget

	// Failure hooks; a non-nil return makes the call fail.
	FailFindDue        func(owner string) error
	FailInsert         func(tx *models.Transaction) error
	FailUpdateTemplate func(tmpl *models.RecurringTemplate) error
	FailListBudgets    func(owner string) error
	FailSum            func(category string) error
	FailGrouped        func() error
	FailUpdateBudget   func(budget *models.Budget) error

	// Call counters.
	SumCalls     int
	GroupedCalls int
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		templates: make(map[string]*models.RecurringTemplate),
		budgets:   make(map[string]*models.Budget),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%06d", prefix, s.seq)
}

// AddTemplate stores a copy of tmpl, assigning an id when empty.
func (s *Store) AddTemplate(tmpl models.RecurringTemplate) models.RecurringTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tmpl.ID == "" {
		tmpl.ID = s.nextID("tmpl")
	}
	s.templates[tmpl.ID] = &tmpl
	return tmpl
}

// AddBudget stores a copy of budget, assigning an id when empty.
func (s *Store) AddBudget(budget models.Budget) models.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if budget.ID == "" {
		budget.ID = s.nextID("budget")
	}
	s.budgets[budget.ID] = &budget
	return budget
}

// AddTransaction stores a copy of tx, assigning an id when empty.
func (s *Store) AddTransaction(tx models.Transaction) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = s.nextID("tx")
	}
	s.transactions = append(s.transactions, tx)
	return tx
}

// Transactions returns the owner's transactions in insertion order.
func (s *Store) Transactions(owner string) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == owner {
			out = append(out, tx)
		}
	}
	return out
}

// Template returns a copy of the stored template.
func (s *Store) Template(id string) models.RecurringTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.templates[id]
}

// Budget returns a copy of the stored budget.
func (s *Store) Budget(id string) models.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.budgets[id]
}

// FindDueTemplates implements ledger.TemplateStore.
func (s *Store) FindDueTemplates(_ context.Context, owner string, asOf time.Time) ([]models.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFindDue != nil {
		if err := s.FailFindDue(owner); err != nil {
			return nil, err
		}
	}

	var due []models.RecurringTemplate
	for _, tmpl := range s.templates {
		if tmpl.UserID == owner && tmpl.IsDue(asOf) {
			due = append(due, *tmpl)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextDue.Equal(due[j].NextDue) {
			return due[i].NextDue.Before(due[j].NextDue)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// InsertTransaction implements ledger.TemplateStore.
func (s *Store) InsertTransaction(_ context.Context, tx *models.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		if err := s.FailInsert(tx); err != nil {
			return "", err
		}
	}

	if tx.TemplateID != nil && tx.ScheduledFor != nil {
		for _, existing := range s.transactions {
			if existing.TemplateID != nil && *existing.TemplateID == *tx.TemplateID &&
				existing.ScheduledFor != nil && existing.ScheduledFor.Equal(*tx.ScheduledFor) {
				return "", ledger.ErrDuplicateOccurrence
			}
		}
	}

	stored := *tx
	stored.ID = s.nextID("tx")
	s.transactions = append(s.transactions, stored)
	return stored.ID, nil
}

// UpdateTemplate implements ledger.TemplateStore.
func (s *Store) UpdateTemplate(_ context.Context, tmpl *models.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateTemplate != nil {
		if err := s.FailUpdateTemplate(tmpl); err != nil {
			return err
		}
	}

	stored, ok := s.templates[tmpl.ID]
	if !ok || stored.UserID != tmpl.UserID {
		return ledger.ErrNotFound
	}
	stored.NextDue = tmpl.NextDue
	if tmpl.LastPassAt != nil {
		at := *tmpl.LastPassAt
		stored.LastPassAt = &at
	}
	return nil
}

// ListBudgets implements ledger.BudgetStore.
func (s *Store) ListBudgets(_ context.Context, owner string) ([]models.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailListBudgets != nil {
		if err := s.FailListBudgets(owner); err != nil {
			return nil, err
		}
	}

	var budgets []models.Budget
	for _, b := range s.budgets {
		if b.UserID == owner {
			budgets = append(budgets, *b)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Category < budgets[j].Category })
	return budgets, nil
}

// SumTransactions implements ledger.BudgetStore.
func (s *Store) SumTransactions(_ context.Context, owner, category string, since time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SumCalls++
	if s.FailSum != nil {
		if err := s.FailSum(category); err != nil {
			return decimal.Zero, err
		}
	}

	total := decimal.Zero
	for _, tx := range s.transactions {
		if tx.UserID == owner && tx.Category == category && !tx.OccurredAt.Before(since) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

// SumByCategorySince implements ledger.BudgetStore.
func (s *Store) SumByCategorySince(_ context.Context, owner string, categories []string, since time.Time) ([]ledger.CategoryBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GroupedCalls++
	if s.FailGrouped != nil {
		if err := s.FailGrouped(); err != nil {
			return nil, err
		}
	}

	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	type key struct {
		category string
		at       int64
	}
	totals := make(map[key]*ledger.CategoryBucket)
	var order []key
	for _, tx := range s.transactions {
		if tx.UserID != owner || tx.OccurredAt.Before(since) {
			continue
		}
		if len(wanted) > 0 && !wanted[tx.Category] {
			continue
		}
		k := key{tx.Category, tx.OccurredAt.UnixNano()}
		bucket, ok := totals[k]
		if !ok {
			bucket = &ledger.CategoryBucket{Category: tx.Category, OccurredAt: tx.OccurredAt, Total: decimal.Zero}
			totals[k] = bucket
			order = append(order, k)
		}
		bucket.Total = bucket.Total.Add(tx.Amount)
	}

	buckets := make([]ledger.CategoryBucket, 0, len(order))
	for _, k := range order {
		buckets = append(buckets, *totals[k])
	}
	return buckets, nil
}

// UpdateBudget implements ledger.BudgetStore.
func (s *Store) UpdateBudget(_ context.Context, budget *models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateBudget != nil {
		if err := s.FailUpdateBudget(budget); err != nil {
			return err
		}
	}

	stored, ok := s.budgets[budget.ID]
	if !ok || stored.UserID != budget.UserID {
		return ledger.ErrNotFound
	}
	stored.CurrentSpent = budget.CurrentSpent
	stored.LastReset = budget.LastReset
	return nil
}

// ListOwnersWithDueTemplates implements ledger.Store.
func (s *Store) ListOwnersWithDueTemplates(_ context.Context, asOf time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var owners []string
	for _, tmpl := range s.templates {
		if tmpl.IsDue(asOf) && !seen[tmpl.UserID] {
			seen[tmpl.UserID] = true
			owners = append(owners, tmpl.UserID)
		}
	}
	sort.Strings(owners)
	return owners, nil
}
