package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserBySns(ctx context.Context, platform, snsID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id uint, active bool) error
	ReplaceInterestedSports(ctx context.Context, userID uint, sportIDs []uint) error
	ReplaceCertificateLevels(ctx context.Context, userID uint, levelIDs []uint) error
	GetCertificateLevels(ctx context.Context, userID uint) ([]models.CertificateLevel, error)
	ListUsers(ctx context.Context, search string, page, limit int) ([]models.User, int64, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID loads a user together with the sports they follow.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("InterestedSports").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserBySns(ctx context.Context, platform, snsID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("login_platform = ? AND sns_id = ?", platform, snsID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser saves scalar profile fields. Associations are managed separately.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("InterestedSports").Save(user).Error
}

func (r *PostgresUserRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ReplaceInterestedSports(ctx context.Context, userID uint, sportIDs []uint) error {
	user := models.User{ID: userID}
	assoc := r.db.WithContext(ctx).Model(&user).Association("InterestedSports")
	if len(sportIDs) == 0 {
		return assoc.Clear()
	}
	var sports []models.Sport
	if err := r.db.WithContext(ctx).Where("id IN ?", sportIDs).Find(&sports).Error; err != nil {
		return err
	}
	return assoc.Replace(sports)
}

func (r *PostgresUserRepository) ReplaceCertificateLevels(ctx context.Context, userID uint, levelIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserCertificate{}).Error; err != nil {
			return err
		}
		if len(levelIDs) == 0 {
			return nil
		}
		rows := make([]models.UserCertificate, 0, len(levelIDs))
		for _, id := range levelIDs {
			rows = append(rows, models.UserCertificate{UserID: userID, CertificateLevelID: id})
		}
		return tx.Create(&rows).Error
	})
}

func (r *PostgresUserRepository) GetCertificateLevels(ctx context.Context, userID uint) ([]models.CertificateLevel, error) {
	var levels []models.CertificateLevel
	err := r.db.WithContext(ctx).
		Joins("JOIN user_certificates uc ON uc.certificate_level_id = certificate_levels.id").
		Where("uc.user_id = ?", userID).
		Find(&levels).Error
	return levels, err
}

// ListUsers pages through users for the admin pages, newest first.
func (r *PostgresUserRepository) ListUsers(ctx context.Context, search string, page, limit int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := q.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}
