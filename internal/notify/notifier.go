package notify

import (
	"context"
	"errors"

	"spendcycle/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers notification intents.
type Notifier interface {
	DeliverRecurringInserted(ctx context.Context, intent RecurringInsertedIntent) error
	DeliverBudgetThreshold(ctx context.Context, intent BudgetThresholdIntent) error
}

// Deliver sends every intent through n and returns the joined delivery
// errors. A failed intent does not stop the others.
func Deliver(ctx context.Context, n Notifier, intents Intents) error {
	var errs []error
	for _, intent := range intents.RecurringInserted {
		if err := n.DeliverRecurringInserted(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	for _, intent := range intents.BudgetThreshold {
		if err := n.DeliverBudgetThreshold(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes intents to a structured logger.
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) DeliverRecurringInserted(_ context.Context, intent RecurringInsertedIntent) error {
	n.log.Infow(intent.Title(),
		"owner", intent.Owner,
		"category", intent.Category,
		"message", intent.Message(),
	)
	return nil
}

func (n *LogNotifier) DeliverBudgetThreshold(_ context.Context, intent BudgetThresholdIntent) error {
	n.log.Infow(intent.Title(),
		"owner", intent.Owner,
		"category", intent.Category,
		"spent", intent.Spent.String(),
		"limit", intent.Limit.String(),
		"message", intent.Message(),
	)
	return nil
}

// StoreNotifier persists intents as inbox rows.
type StoreNotifier struct {
	db *gorm.DB
}

// NewStoreNotifier creates a StoreNotifier.
func NewStoreNotifier(db *gorm.DB) *StoreNotifier {
	return &StoreNotifier{db: db}
}

func (n *StoreNotifier) DeliverRecurringInserted(ctx context.Context, intent RecurringInsertedIntent) error {
	return n.db.WithContext(ctx).Create(&models.Notification{
		UserID:   intent.Owner,
		Kind:     models.NotificationRecurringInserted,
		Category: intent.Category,
		Title:    intent.Title(),
		Message:  intent.Message(),
	}).Error
}

func (n *StoreNotifier) DeliverBudgetThreshold(ctx context.Context, intent BudgetThresholdIntent) error {
	return n.db.WithContext(ctx).Create(&models.Notification{
		UserID:   intent.Owner,
		Kind:     models.NotificationBudgetThreshold,
		Category: intent.Category,
		Title:    intent.Title(),
		Message:  intent.Message(),
	}).Error
}

// Multi fans every intent out to all of its notifiers.
type Multi []Notifier

func (m Multi) DeliverRecurringInserted(ctx context.Context, intent RecurringInsertedIntent) error {
	var errs []error
	for _, n := range m {
		if err := n.DeliverRecurringInserted(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) DeliverBudgetThreshold(ctx context.Context, intent BudgetThresholdIntent) error {
	var errs []error
	for _, n := range m {
		if err := n.DeliverBudgetThreshold(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
