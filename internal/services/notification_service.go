package services

import (
	"errors"

	"gorm.io/gorm"

	"spendcycle/internal/clock"
	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
)

// notificationService serves the notification inbox.
type notificationService struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB, clk clock.Clock) NotificationServicer {
	return &notificationService{db: db, clock: clk}
}

// GetUserNotifications lists the user's notifications, newest first.
func (s *notificationService) GetUserNotifications(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error) {
	base := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("read_at IS NULL")
	}

	result, err := pagination.List[models.Notification](base, page, "created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// MarkRead marks a notification as read. Marking it again keeps the first read time.
func (s *notificationService) MarkRead(userID, notificationID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if notification.ReadAt != nil {
		return &notification, nil
	}

	readAt := s.clock.Now().UTC()
	if err := s.db.Model(&notification).Update("read_at", readAt).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	notification.ReadAt = &readAt
	return &notification, nil
}
