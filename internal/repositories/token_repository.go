package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// TokenRepository stores refresh tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *models.UserToken) error
	GetActiveToken(ctx context.Context, refreshToken string, now time.Time) (*models.UserToken, error)
	DeactivateToken(ctx context.Context, id uint) error
	DeactivateUserTokens(ctx context.Context, userID uint) error
}

type PostgresTokenRepository struct {
	db *gorm.DB
}

func NewPostgresTokenRepository(db *gorm.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

func (r *PostgresTokenRepository) CreateToken(ctx context.Context, token *models.UserToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetActiveToken returns gorm.ErrRecordNotFound for unknown, revoked or
// expired tokens alike.
func (r *PostgresTokenRepository) GetActiveToken(ctx context.Context, refreshToken string, now time.Time) (*models.UserToken, error) {
	var token models.UserToken
	err := r.db.WithContext(ctx).
		Where("refresh_token = ? AND is_active = ? AND expires_at > ?", refreshToken, true, now).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *PostgresTokenRepository) DeactivateToken(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.UserToken{}).Where("id = ?", id).Update("is_active", false).Error
}

func (r *PostgresTokenRepository) DeactivateUserTokens(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.UserToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}
