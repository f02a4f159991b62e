// Package recurring materializes due recurring templates into transactions
// and advances their schedules.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"spendcycle/internal/ledger"
	"spendcycle/internal/models"

	"go.uber.org/zap"
)

var errScheduleNotAdvanced = errors.New("recurring: next due did not move forward")

// TemplateFailure records a template whose occurrence could not be fully
// processed. Its schedule was not advanced, so it is retried on the next pass.
type TemplateFailure struct {
	TemplateID string
	Category   string
	Cause      error
}

func (f TemplateFailure) Error() string {
	return fmt.Sprintf("template %s: %v", f.TemplateID, f.Cause)
}

func (f TemplateFailure) Unwrap() error { return f.Cause }

// Result is the outcome of one ProcessDue call.
type Result struct {
	Materialized []models.Transaction
	Advanced     []models.RecurringTemplate
	Failures     []TemplateFailure
}

// TouchedCategories returns the sorted, de-duplicated categories of the
// materialized transactions.
func (r *Result) TouchedCategories() []string {
	seen := make(map[string]struct{}, len(r.Materialized))
	var categories []string
	for _, tx := range r.Materialized {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		categories = append(categories, tx.Category)
	}
	sort.Strings(categories)
	return categories
}

// Engine processes due recurring templates for one owner at a time.
type Engine struct {
	store ledger.TemplateStore
	log   *zap.SugaredLogger
}

// NewEngine creates a new Engine.
func NewEngine(store ledger.TemplateStore, log *zap.SugaredLogger) *Engine {
	return &Engine{store: store, log: log}
}

// ProcessDue materializes one transaction for every template of owner that is
// due at now and advances each schedule by one frequency unit from its prior
// next-due instant. A template that is still due afterwards waits for the
// next pass.
//
// Only a failure to list the due templates is returned as an error; failures
// of individual templates are collected in the result.
func (e *Engine) ProcessDue(ctx context.Context, owner string, now time.Time) (*Result, error) {
	templates, err := e.store.FindDueTemplates(ctx, owner, now)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(templates, func(i, j int) bool {
		if !templates[i].NextDue.Equal(templates[j].NextDue) {
			return templates[i].NextDue.Before(templates[j].NextDue)
		}
		return templates[i].ID < templates[j].ID
	})

	result := &Result{}
	for i := range templates {
		tmpl := templates[i]
		if tmpl.UserID != owner || !tmpl.IsDue(now) {
			e.log.Debugw("skipping template that is not due",
				"template_id", tmpl.ID,
				"next_due", tmpl.NextDue,
			)
			continue
		}
		if tmpl.ProcessedAt(now) {
			e.log.Debugw("template already processed at this instant",
				"template_id", tmpl.ID,
				"next_due", tmpl.NextDue,
			)
			continue
		}
		e.processTemplate(ctx, &tmpl, now, result)
	}

	e.log.Infow("recurring templates processed",
		"owner", owner,
		"due", len(templates),
		"materialized", len(result.Materialized),
		"failed", len(result.Failures),
	)
	return result, nil
}

func (e *Engine) processTemplate(ctx context.Context, tmpl *models.RecurringTemplate, now time.Time, result *Result) {
	tx := tmpl.Materialize(now)

	id, err := e.store.InsertTransaction(ctx, tx)
	duplicate := errors.Is(err, ledger.ErrDuplicateOccurrence)
	switch {
	case duplicate:
		e.log.Warnw("occurrence already materialized, advancing schedule",
			"template_id", tmpl.ID,
			"scheduled_for", tmpl.NextDue,
		)
	case err != nil:
		e.fail(result, tmpl, err)
		return
	default:
		tx.ID = id
		result.Materialized = append(result.Materialized, *tx)
	}

	previous := tmpl.NextDue
	tmpl.Advance()
	tmpl.MarkProcessed(now)
	if !tmpl.NextDue.After(previous) {
		e.fail(result, tmpl, errScheduleNotAdvanced)
		return
	}

	if err := e.store.UpdateTemplate(ctx, tmpl); err != nil {
		e.fail(result, tmpl, err)
		return
	}
	result.Advanced = append(result.Advanced, *tmpl)
}

func (e *Engine) fail(result *Result, tmpl *models.RecurringTemplate, cause error) {
	e.log.Warnw("recurring template failed",
		"template_id", tmpl.ID,
		"category", tmpl.Category,
		"error", cause,
	)
	result.Failures = append(result.Failures, TemplateFailure{
		TemplateID: tmpl.ID,
		Category:   tmpl.Category,
		Cause:      cause,
	})
}
