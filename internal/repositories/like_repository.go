package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// ErrLikeNotFound is returned when removing a like that does not exist.
var ErrLikeNotFound = errors.New("like not found")

// LikeRepository defines the interface for party and post like operations
type LikeRepository interface {
	CreatePartyLike(ctx context.Context, partyID, userID uint) error
	DeletePartyLike(ctx context.Context, partyID, userID uint) error
	HasUserLikedParty(ctx context.Context, partyID, userID uint) (bool, error)
	ListLikedParties(ctx context.Context, userID uint) ([]models.Party, error)
	CountPartyLikesByUser(ctx context.Context, userID uint) (int64, error)

	CreatePostLike(ctx context.Context, postID, userID uint) error
	DeletePostLike(ctx context.Context, postID, userID uint) error
	HasUserLikedPost(ctx context.Context, postID, userID uint) (bool, error)
	CountPostLikes(ctx context.Context, postID uint) (int64, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

func (r *PostgresLikeRepository) CreatePartyLike(ctx context.Context, partyID, userID uint) error {
	return r.db.WithContext(ctx).Create(&models.PartyLike{PartyID: partyID, UserID: userID}).Error
}

func (r *PostgresLikeRepository) DeletePartyLike(ctx context.Context, partyID, userID uint) error {
	res := r.db.WithContext(ctx).Where("party_id = ? AND user_id = ?", partyID, userID).Delete(&models.PartyLike{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLikeNotFound
	}
	return nil
}

func (r *PostgresLikeRepository) HasUserLikedParty(ctx context.Context, partyID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PartyLike{}).
		Where("party_id = ? AND user_id = ?", partyID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresLikeRepository) ListLikedParties(ctx context.Context, userID uint) ([]models.Party, error) {
	var parties []models.Party
	err := r.db.WithContext(ctx).Preload("Organizer").Preload("Sport").
		Joins("JOIN party_likes pl ON pl.party_id = parties.id").
		Where("pl.user_id = ?", userID).
		Order("pl.id DESC").
		Find(&parties).Error
	return parties, err
}

func (r *PostgresLikeRepository) CountPartyLikesByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PartyLike{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresLikeRepository) CreatePostLike(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).Create(&models.PostLike{PostID: postID, UserID: userID}).Error
}

func (r *PostgresLikeRepository) DeletePostLike(ctx context.Context, postID, userID uint) error {
	res := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLikeNotFound
	}
	return nil
}

func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresLikeRepository) CountPostLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}
