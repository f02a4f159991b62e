package services

import (
	"context"

	"spendcycle/internal/logger"
)

// reconcileAfterWrite refreshes the owner's budgets in the touched
// categories. The ledger write already committed, so a failure is logged
// and the next reconciliation repairs the budget.
func reconcileAfterWrite(r Reconciler, userID string, categories ...string) {
	if r == nil || len(categories) == 0 {
		return
	}
	result, err := r.Reconcile(context.Background(), userID, dedupe(categories))
	if err != nil {
		logger.ForOwner(userID).Warnw("budget reconciliation after write failed", "categories", categories, "error", err)
		return
	}
	if len(result.Failures) > 0 {
		logger.ForOwner(userID).Warnw("some budgets failed to reconcile", "failures", len(result.Failures))
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
