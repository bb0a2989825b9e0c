package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	GetFeedbackByID(ctx context.Context, id uint) (*models.Feedback, error)
	ListFeedback(ctx context.Context, page, limit int) ([]models.Feedback, int64, error)
	DeleteFeedback(ctx context.Context, id uint) error
}

type PostgresFeedbackRepository struct {
	db *gorm.DB
}

func NewPostgresFeedbackRepository(db *gorm.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

func (r *PostgresFeedbackRepository) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *PostgresFeedbackRepository) GetFeedbackByID(ctx context.Context, id uint) (*models.Feedback, error) {
	var fb models.Feedback
	if err := r.db.WithContext(ctx).First(&fb, id).Error; err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *PostgresFeedbackRepository) ListFeedback(ctx context.Context, page, limit int) ([]models.Feedback, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Feedback{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Feedback
	err := r.db.WithContext(ctx).Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *PostgresFeedbackRepository) DeleteFeedback(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Feedback{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
