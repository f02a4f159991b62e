// Package coordinator runs recurring passes: it materializes due templates
// for one owner, reconciles the touched budgets and hands the resulting
// notification intents to a Notifier.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendcycle/internal/clock"
	"spendcycle/internal/ledger"
	"spendcycle/internal/metrics"
	"spendcycle/internal/models"
	"spendcycle/internal/notify"
	"spendcycle/internal/reconcile"
	"spendcycle/internal/recurring"

	"go.uber.org/zap"
)

// ErrPassAborted marks a pass that stopped before doing any work.
var ErrPassAborted = errors.New("recurring pass aborted")

// Stages at which a pass can abort.
const (
	StageLock    = "lock"
	StageFindDue = "find_due"
	StageBudgets = "list_budgets"
)

// PassAbortError reports why a pass was aborted. It matches both
// ErrPassAborted and its cause under errors.Is.
type PassAbortError struct {
	Owner string
	Stage string
	Cause error
}

func (e *PassAbortError) Error() string {
	return fmt.Sprintf("recurring pass for %s aborted at %s: %v", e.Owner, e.Stage, e.Cause)
}

func (e *PassAbortError) Unwrap() []error {
	return []error{ErrPassAborted, e.Cause}
}

// PassReport is the outcome of one pass for one owner.
type PassReport struct {
	Owner            string                      `json:"owner"`
	Now              time.Time                   `json:"now"`
	Materialized     []models.Transaction        `json:"materialized"`
	Advanced         []models.RecurringTemplate  `json:"advanced"`
	TemplateFailures []recurring.TemplateFailure `json:"-"`
	Reconciliation   *reconcile.Result           `json:"-"`
	ReconcileErr     error                       `json:"-"` // budgets could not be listed
	Intents          notify.Intents              `json:"-"`
	Duration         time.Duration               `json:"duration"`
}

// Failed reports whether any part of the pass failed.
func (r *PassReport) Failed() bool {
	if len(r.TemplateFailures) > 0 || r.ReconcileErr != nil {
		return true
	}
	return r.Reconciliation != nil && len(r.Reconciliation.Failures) > 0
}

// Coordinator owns the per-owner lock and wires the engines together.
type Coordinator struct {
	recurring *recurring.Engine
	reconcile *reconcile.Engine
	store     ledger.Store
	clock     clock.Clock
	notifier  notify.Notifier
	locks     *KeyedMutex
	log       *zap.SugaredLogger
}

// New creates a Coordinator over store.
func New(store ledger.Store, clk clock.Clock, notifier notify.Notifier, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		recurring: recurring.NewEngine(store, log.Named("recurring")),
		reconcile: reconcile.NewEngine(store, log.Named("reconcile")),
		store:     store,
		clock:     clk,
		notifier:  notifier,
		locks:     NewKeyedMutex(),
		log:       log,
	}
}

// Clock returns the coordinator's time source.
func (c *Coordinator) Clock() clock.Clock {
	return c.clock
}

// RunPass processes every template of owner due at now, then reconciles the
// budgets of the categories that received a transaction. Intents are
// collected but not delivered.
//
// Only lock acquisition and listing the due templates abort the pass; other
// failures are recorded in the report.
func (c *Coordinator) RunPass(ctx context.Context, owner string, now time.Time) (*PassReport, error) {
	start := time.Now()
	report := &PassReport{Owner: owner, Now: now}

	unlock, err := c.locks.Lock(ctx, owner)
	if err != nil {
		return report, c.abort(report, StageLock, err, start)
	}
	defer unlock()

	if err := ctx.Err(); err != nil {
		return report, c.abort(report, StageLock, err, start)
	}

	processed, err := c.recurring.ProcessDue(ctx, owner, now)
	if err != nil {
		return report, c.abort(report, StageFindDue, err, start)
	}
	report.Materialized = processed.Materialized
	report.Advanced = processed.Advanced
	report.TemplateFailures = processed.Failures

	var crossed []models.Budget
	if touched := processed.TouchedCategories(); len(touched) > 0 {
		reconciled, err := c.reconcile.Reconcile(ctx, owner, touched, now)
		if err != nil {
			c.log.Warnw("reconciliation skipped", "owner", owner, "error", err)
			report.ReconcileErr = err
		} else {
			report.Reconciliation = reconciled
			crossed = reconciled.ThresholdCrossed
		}
	}

	report.Intents = notify.FromPass(report.Materialized, crossed)
	report.Duration = time.Since(start)
	c.observe(report)
	return report, nil
}

// RunPassNow runs a pass at the clock's current time and delivers the
// intents once the owner's lock is released. Delivery failures are logged
// and counted, never returned.
func (c *Coordinator) RunPassNow(ctx context.Context, owner string) (*PassReport, error) {
	report, err := c.RunPass(ctx, owner, c.clock.Now())
	if err != nil {
		return report, err
	}
	c.dispatch(ctx, report.Intents)
	return report, nil
}

// Reconcile reconciles the owner's budgets in categories at the clock's
// current time under the owner's lock, then delivers any threshold intents.
// Empty categories selects every budget.
func (c *Coordinator) Reconcile(ctx context.Context, owner string, categories []string) (*reconcile.Result, error) {
	unlock, err := c.locks.Lock(ctx, owner)
	if err != nil {
		return nil, &PassAbortError{Owner: owner, Stage: StageLock, Cause: err}
	}
	result, err := c.reconcile.Reconcile(ctx, owner, categories, c.clock.Now())
	unlock()
	if err != nil {
		return nil, &PassAbortError{Owner: owner, Stage: StageBudgets, Cause: err}
	}

	c.observeReconcile(result)
	c.dispatch(ctx, notify.FromPass(nil, result.ThresholdCrossed))
	return result, nil
}

// DueTemplates lists the owner's templates due at the clock's current time.
func (c *Coordinator) DueTemplates(ctx context.Context, owner string) ([]models.RecurringTemplate, error) {
	return c.store.FindDueTemplates(ctx, owner, c.clock.Now())
}

func (c *Coordinator) dispatch(ctx context.Context, intents notify.Intents) {
	if c.notifier == nil || intents.Len() == 0 {
		return
	}
	for _, intent := range intents.RecurringInserted {
		if err := c.notifier.DeliverRecurringInserted(ctx, intent); err != nil {
			metrics.NotificationFailures.WithLabelValues(string(models.NotificationRecurringInserted)).Inc()
			c.log.Warnw("notification delivery failed", "owner", intent.Owner, "kind", models.NotificationRecurringInserted, "error", err)
		}
	}
	for _, intent := range intents.BudgetThreshold {
		if err := c.notifier.DeliverBudgetThreshold(ctx, intent); err != nil {
			metrics.NotificationFailures.WithLabelValues(string(models.NotificationBudgetThreshold)).Inc()
			c.log.Warnw("notification delivery failed", "owner", intent.Owner, "kind", models.NotificationBudgetThreshold, "error", err)
		}
	}
}

func (c *Coordinator) abort(report *PassReport, stage string, cause error, start time.Time) error {
	report.Duration = time.Since(start)
	metrics.PassesTotal.WithLabelValues(metrics.OutcomeAborted).Inc()
	metrics.PassDuration.Observe(report.Duration.Seconds())
	c.log.Errorw("recurring pass aborted", "owner", report.Owner, "stage", stage, "error", cause)
	return &PassAbortError{Owner: report.Owner, Stage: stage, Cause: cause}
}

func (c *Coordinator) observe(report *PassReport) {
	outcome := metrics.OutcomeOK
	if report.Failed() {
		outcome = metrics.OutcomePartial
	}
	metrics.PassesTotal.WithLabelValues(outcome).Inc()
	metrics.PassDuration.Observe(report.Duration.Seconds())
	metrics.TransactionsMaterialized.Add(float64(len(report.Materialized)))
	metrics.TemplateFailures.Add(float64(len(report.TemplateFailures)))
	if report.Reconciliation != nil {
		c.observeReconcile(report.Reconciliation)
	}

	c.log.Infow("recurring pass finished",
		"owner", report.Owner,
		"outcome", outcome,
		"materialized", len(report.Materialized),
		"intents", report.Intents.Len(),
		"duration", report.Duration,
	)
}

func (c *Coordinator) observeReconcile(result *reconcile.Result) {
	metrics.BudgetResets.Add(float64(len(result.Reset)))
	metrics.ReconcileFailures.Add(float64(len(result.Failures)))
	metrics.ThresholdCrossings.Add(float64(len(result.ThresholdCrossed)))
}
