package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// SportRepository reads the sport and certificate catalogues.
type SportRepository interface {
	ListSports(ctx context.Context) ([]models.Sport, error)
	GetSportByID(ctx context.Context, id uint) (*models.Sport, error)
	ListCertificates(ctx context.Context, sportID uint) ([]models.Certificate, error)
	ListCertificateLevels(ctx context.Context, certificateID uint) ([]models.CertificateLevel, error)
	GetLevelsByIDs(ctx context.Context, ids []uint) ([]models.CertificateLevel, error)
	GetCertificatesByIDs(ctx context.Context, ids []uint) (map[uint]models.Certificate, error)
}

type PostgresSportRepository struct {
	db *gorm.DB
}

func NewPostgresSportRepository(db *gorm.DB) *PostgresSportRepository {
	return &PostgresSportRepository{db: db}
}

func (r *PostgresSportRepository) ListSports(ctx context.Context) ([]models.Sport, error) {
	var sports []models.Sport
	err := r.db.WithContext(ctx).Order("id").Find(&sports).Error
	return sports, err
}

func (r *PostgresSportRepository) GetSportByID(ctx context.Context, id uint) (*models.Sport, error) {
	var sport models.Sport
	if err := r.db.WithContext(ctx).First(&sport, id).Error; err != nil {
		return nil, err
	}
	return &sport, nil
}

// ListCertificates returns every certificate, or those of one sport when
// sportID is non-zero.
func (r *PostgresSportRepository) ListCertificates(ctx context.Context, sportID uint) ([]models.Certificate, error) {
	q := r.db.WithContext(ctx).Order("id")
	if sportID != 0 {
		q = q.Where("sport_id = ?", sportID)
	}
	var certs []models.Certificate
	err := q.Find(&certs).Error
	return certs, err
}

func (r *PostgresSportRepository) ListCertificateLevels(ctx context.Context, certificateID uint) ([]models.CertificateLevel, error) {
	var levels []models.CertificateLevel
	err := r.db.WithContext(ctx).Where("certificate_id = ?", certificateID).Order("id").Find(&levels).Error
	return levels, err
}

func (r *PostgresSportRepository) GetLevelsByIDs(ctx context.Context, ids []uint) ([]models.CertificateLevel, error) {
	var levels []models.CertificateLevel
	if len(ids) == 0 {
		return levels, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&levels).Error
	return levels, err
}

func (r *PostgresSportRepository) GetCertificatesByIDs(ctx context.Context, ids []uint) (map[uint]models.Certificate, error) {
	out := make(map[uint]models.Certificate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var certs []models.Certificate
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&certs).Error; err != nil {
		return nil, err
	}
	for _, c := range certs {
		out[c.ID] = c
	}
	return out, nil
}
