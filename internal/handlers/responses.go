package handlers

import (
	"time"

	"spendcycle/internal/coordinator"
	"spendcycle/internal/models"
	"spendcycle/internal/reconcile"
)

// FailureResponse describes one item a pass or reconciliation could not process.
type FailureResponse struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// ReconcileResponse is the JSON form of a reconciliation result.
type ReconcileResponse struct {
	Reset            []models.Budget   `json:"reset"`
	Updated          []models.Budget   `json:"updated"`
	ThresholdCrossed []models.Budget   `json:"threshold_crossed"`
	Failures         []FailureResponse `json:"failures"`
}

// PassResponse is the JSON form of a recurring pass report.
type PassResponse struct {
	Owner            string               `json:"owner"`
	Now              time.Time            `json:"now"`
	Materialized     []models.Transaction `json:"materialized"`
	TemplateFailures []FailureResponse    `json:"template_failures"`
	Reconciliation   *ReconcileResponse   `json:"reconciliation,omitempty"`
	ReconcileError   string               `json:"reconcile_error,omitempty"`
	Notifications    int                  `json:"notifications"`
	DurationMs       int64                `json:"duration_ms"`
}

func newReconcileResponse(r *reconcile.Result) *ReconcileResponse {
	if r == nil {
		return nil
	}
	resp := &ReconcileResponse{
		Reset:            nonNil(r.Reset),
		Updated:          nonNil(r.Updated),
		ThresholdCrossed: nonNil(r.ThresholdCrossed),
		Failures:         make([]FailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, FailureResponse{ID: f.BudgetID, Category: f.Category, Error: f.Cause.Error()})
	}
	return resp
}

func newPassResponse(r *coordinator.PassReport) *PassResponse {
	resp := &PassResponse{
		Owner:            r.Owner,
		Now:              r.Now,
		Materialized:     nonNil(r.Materialized),
		TemplateFailures: make([]FailureResponse, 0, len(r.TemplateFailures)),
		Reconciliation:   newReconcileResponse(r.Reconciliation),
		Notifications:    r.Intents.Len(),
		DurationMs:       r.Duration.Milliseconds(),
	}
	for _, f := range r.TemplateFailures {
		resp.TemplateFailures = append(resp.TemplateFailures, FailureResponse{ID: f.TemplateID, Category: f.Category, Error: f.Cause.Error()})
	}
	if r.ReconcileErr != nil {
		resp.ReconcileError = r.ReconcileErr.Error()
	}
	return resp
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
