package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bluerally/buooy-backend/internal/models"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	GetForUser(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error)
	GetReadIDs(ctx context.Context, userID uint, notificationIDs []uint) (map[uint]bool, error)
	MarkAsRead(ctx context.Context, userID uint, notificationIDs []uint) error
	GetUnreadCount(ctx context.Context, userID uint) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

// visibleTo scopes a query to notifications addressed to the user or global.
func visibleTo(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("target_user_id = ? OR is_global = ?", userID, true)
	}
}

func (r *postgresNotificationRepository) GetForUser(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).Scopes(visibleTo(userID)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := r.db.WithContext(ctx).Scopes(visibleTo(userID)).
		Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *postgresNotificationRepository) GetReadIDs(ctx context.Context, userID uint, notificationIDs []uint) (map[uint]bool, error) {
	read := make(map[uint]bool)
	if len(notificationIDs) == 0 {
		return read, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.NotificationRead{}).
		Where("user_id = ? AND notification_id IN ?", userID, notificationIDs).
		Pluck("notification_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		read[id] = true
	}
	return read, nil
}

// MarkAsRead records reads for the given ids that the user can see. Ids
// already read are skipped.
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, userID uint, notificationIDs []uint) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	var visible []uint
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(visibleTo(userID)).
		Where("id IN ?", notificationIDs).
		Pluck("id", &visible).Error
	if err != nil {
		return err
	}
	if len(visible) == 0 {
		return nil
	}
	rows := make([]models.NotificationRead, 0, len(visible))
	for _, id := range visible {
		rows = append(rows, models.NotificationRead{NotificationID: id, UserID: userID})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	readIDs := r.db.Model(&models.NotificationRead{}).Select("notification_id").Where("user_id = ?", userID)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(visibleTo(userID)).
		Where("id NOT IN (?)", readIDs).
		Count(&count).Error
	return count, err
}
