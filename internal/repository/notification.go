package repository

import (
	"context"

	"swap/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for offline
// notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint) error
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var notifications []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
