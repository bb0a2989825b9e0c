package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// CommentRepository defines the interface for post comment operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.PostComment) error
	GetCommentByID(ctx context.Context, postID, id uint) (*models.PostComment, error)
	GetCommentsByPostID(ctx context.Context, postID uint) ([]models.PostComment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	SoftDelete(ctx context.Context, id uint) error
	SetLikeCount(ctx context.Context, id uint, count int64) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.PostComment) error {
	return r.db.WithContext(ctx).Omit("User").Create(comment).Error
}

func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, postID, id uint) (*models.PostComment, error) {
	var comment models.PostComment
	err := r.db.WithContext(ctx).Preload("User").
		Where("id = ? AND post_id = ? AND is_deleted = ?", id, postID, false).
		First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByPostID returns every live comment and reply, oldest first.
func (r *PostgresCommentRepository) GetCommentsByPostID(ctx context.Context, postID uint) ([]models.PostComment, error) {
	var comments []models.PostComment
	err := r.db.WithContext(ctx).Preload("User").
		Where("post_id = ? AND is_deleted = ?", postID, false).
		Order("id").
		Find(&comments).Error
	return comments, err
}

func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).Model(&models.PostComment{}).Where("id = ?", id).Update("content", content).Error
}

func (r *PostgresCommentRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.PostComment{}).Where("id = ?", id).Update("is_deleted", true).Error
}

func (r *PostgresCommentRepository) SetLikeCount(ctx context.Context, id uint, count int64) error {
	return r.db.WithContext(ctx).Model(&models.PostComment{}).Where("id = ?", id).UpdateColumn("like_count", count).Error
}
