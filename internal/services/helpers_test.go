package services

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"spendcycle/internal/clock"
	"spendcycle/internal/coordinator"
	"spendcycle/internal/ledger"
	"spendcycle/internal/notify"
	"spendcycle/internal/testutil"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// newTestCoordinator wires a coordinator over db that persists notifications.
func newTestCoordinator(db *gorm.DB) *coordinator.Coordinator {
	return coordinator.New(ledger.NewGormStore(db), clock.Fixed(testNow), notify.NewStoreNotifier(db), zap.NewNop().Sugar())
}

func setupServices(t *testing.T) (*gorm.DB, *coordinator.Coordinator) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return db, newTestCoordinator(db)
}

func ptr[T any](v T) *T { return &v }
