package services

import (
	"testing"

	"spendcycle/internal/models"
	"spendcycle/internal/testutil"
)

func TestAuditService_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)

	svc.Log(AuditEntry{
		Owner:        "owner-1",
		Action:       "CREATE_BUDGET",
		ResourceType: "budget",
		ResourceID:   "b-1",
		IPAddress:    "10.0.0.1",
		Changes:      map[string]any{"limit": "100"},
	})
	svc.Log(AuditEntry{
		Owner:        "owner-1",
		Actor:        "pipeline",
		Action:       "RUN_RECURRING_PASS",
		ResourceType: "recurring_pass",
	})

	var rows []models.AuditLog
	if err := db.Order("action ASC").Find(&rows).Error; err != nil {
		t.Fatalf("failed to load audit logs: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(rows))
	}

	created, run := rows[0], rows[1]
	if created.Actor != "user" {
		t.Errorf("expected default actor user, got %q", created.Actor)
	}
	if created.Changes != `{"limit":"100"}` {
		t.Errorf("unexpected changes %q", created.Changes)
	}
	if run.Actor != "pipeline" {
		t.Errorf("expected pipeline actor, got %q", run.Actor)
	}
	if run.Changes != "" {
		t.Errorf("expected no changes recorded, got %q", run.Changes)
	}
}
