package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *models.AdminUser) error
	GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
}

type PostgresAdminRepository struct {
	db *gorm.DB
}

func NewPostgresAdminRepository(db *gorm.DB) *PostgresAdminRepository {
	return &PostgresAdminRepository{db: db}
}

func (r *PostgresAdminRepository) CreateAdmin(ctx context.Context, admin *models.AdminUser) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *PostgresAdminRepository) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
