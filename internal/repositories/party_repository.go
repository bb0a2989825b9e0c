package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// PartyRepository defines the interface for party data operations
type PartyRepository interface {
	CreateParty(ctx context.Context, party *models.Party) error
	GetPartyByID(ctx context.Context, id uint) (*models.Party, error)
	UpdateParty(ctx context.Context, party *models.Party) error
	SetActive(ctx context.Context, id uint, active bool) error
	DeleteParty(ctx context.Context, id uint) error
	ListParties(ctx context.Context, filter models.PartyListFilter) ([]models.Party, int64, error)
	ListOrganizedBy(ctx context.Context, userID uint) ([]models.Party, error)
	ListParticipatedBy(ctx context.Context, userID uint) ([]models.Party, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostgresPartyRepository implements PartyRepository for PostgreSQL
type PostgresPartyRepository struct {
	db *gorm.DB
}

// NewPostgresPartyRepository creates a new PostgresPartyRepository
func NewPostgresPartyRepository(db *gorm.DB) *PostgresPartyRepository {
	return &PostgresPartyRepository{db: db}
}

func (r *PostgresPartyRepository) CreateParty(ctx context.Context, party *models.Party) error {
	return r.db.WithContext(ctx).Omit("Organizer", "Sport").Create(party).Error
}

// GetPartyByID loads the party with its organizer and sport.
func (r *PostgresPartyRepository) GetPartyByID(ctx context.Context, id uint) (*models.Party, error) {
	var party models.Party
	err := r.db.WithContext(ctx).Preload("Organizer").Preload("Sport").First(&party, id).Error
	if err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *PostgresPartyRepository) UpdateParty(ctx context.Context, party *models.Party) error {
	return r.db.WithContext(ctx).Omit("Organizer", "Sport").Save(party).Error
}

func (r *PostgresPartyRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Party{}).Where("id = ?", id).Update("is_active", active).Error
}

// DeleteParty removes the party and everything hanging off it.
func (r *PostgresPartyRepository) DeleteParty(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("party_id = ?", id).Delete(&models.PartyParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("party_id = ?", id).Delete(&models.PartyComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("party_id = ?", id).Delete(&models.PartyLike{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Party{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PostgresPartyRepository) ListParties(ctx context.Context, f models.PartyListFilter) ([]models.Party, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Party{})
	if len(f.SportIDs) > 0 {
		q = q.Where("sport_id IN ?", f.SportIDs)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.GatherDateMin != nil {
		q = q.Where("gather_at >= ?", f.GatherDateMin.UTC())
	}
	if f.GatherDateMax != nil {
		q = q.Where("gather_at < ?", f.GatherDateMax.UTC())
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR body LIKE ? OR place_name LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var parties []models.Party
	err := q.Preload("Organizer").Preload("Sport").
		Order("id DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&parties).Error
	return parties, total, err
}

func (r *PostgresPartyRepository) ListOrganizedBy(ctx context.Context, userID uint) ([]models.Party, error) {
	var parties []models.Party
	err := r.db.WithContext(ctx).Preload("Organizer").Preload("Sport").
		Where("organizer_id = ?", userID).
		Order("gather_at DESC").
		Find(&parties).Error
	return parties, err
}

// ListParticipatedBy returns parties where the user has a pending or
// approved request.
func (r *PostgresPartyRepository) ListParticipatedBy(ctx context.Context, userID uint) ([]models.Party, error) {
	var parties []models.Party
	err := r.db.WithContext(ctx).Preload("Organizer").Preload("Sport").
		Joins("JOIN party_participants pp ON pp.party_id = parties.id").
		Where("pp.participant_id = ? AND pp.status IN ?", userID,
			[]models.ParticipationStatus{models.StatusPending, models.StatusApproved}).
		Order("parties.gather_at DESC").
		Find(&parties).Error
	return parties, err
}

// DeactivateExpired flips every active party whose gather time is before
// now in a single UPDATE.
func (r *PostgresPartyRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Party{}).
		Where("is_active = ? AND gather_at < ?", true, now.UTC()).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
