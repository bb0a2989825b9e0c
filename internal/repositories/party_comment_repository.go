package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// PartyCommentRepository defines the interface for party comment operations
type PartyCommentRepository interface {
	CreateComment(ctx context.Context, comment *models.PartyComment) error
	GetCommentByID(ctx context.Context, partyID, id uint) (*models.PartyComment, error)
	ListComments(ctx context.Context, partyID uint) ([]models.PartyComment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	SoftDelete(ctx context.Context, id uint) error
}

type PostgresPartyCommentRepository struct {
	db *gorm.DB
}

func NewPostgresPartyCommentRepository(db *gorm.DB) *PostgresPartyCommentRepository {
	return &PostgresPartyCommentRepository{db: db}
}

func (r *PostgresPartyCommentRepository) CreateComment(ctx context.Context, comment *models.PartyComment) error {
	return r.db.WithContext(ctx).Omit("Commenter").Create(comment).Error
}

// GetCommentByID only finds live comments of the given party.
func (r *PostgresPartyCommentRepository) GetCommentByID(ctx context.Context, partyID, id uint) (*models.PartyComment, error) {
	var comment models.PartyComment
	err := r.db.WithContext(ctx).Preload("Commenter").
		Where("id = ? AND party_id = ? AND is_deleted = ?", id, partyID, false).
		First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *PostgresPartyCommentRepository) ListComments(ctx context.Context, partyID uint) ([]models.PartyComment, error) {
	var comments []models.PartyComment
	err := r.db.WithContext(ctx).Preload("Commenter").
		Where("party_id = ? AND is_deleted = ?", partyID, false).
		Order("id").
		Find(&comments).Error
	return comments, err
}

func (r *PostgresPartyCommentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).Model(&models.PartyComment{}).Where("id = ?", id).Update("content", content).Error
}

func (r *PostgresPartyCommentRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.PartyComment{}).Where("id = ?", id).Update("is_deleted", true).Error
}
