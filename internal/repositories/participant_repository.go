package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
)

// ParticipantRepository stores participation requests.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, p *models.PartyParticipant) error
	GetParticipantByID(ctx context.Context, id uint) (*models.PartyParticipant, error)
	GetParticipant(ctx context.Context, partyID, userID uint) (*models.PartyParticipant, error)
	UpdateStatus(ctx context.Context, id uint, status models.ParticipationStatus) error
	ListByParty(ctx context.Context, partyID uint, statuses ...models.ParticipationStatus) ([]models.PartyParticipant, error)
	CountByStatus(ctx context.Context, partyID uint, status models.ParticipationStatus) (int64, error)
	CountApprovedByParties(ctx context.Context, partyIDs []uint) (map[uint]int64, error)
	CountByUser(ctx context.Context, userID uint, statuses ...models.ParticipationStatus) (int64, error)
}

type PostgresParticipantRepository struct {
	db *gorm.DB
}

func NewPostgresParticipantRepository(db *gorm.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

func (r *PostgresParticipantRepository) CreateParticipant(ctx context.Context, p *models.PartyParticipant) error {
	return r.db.WithContext(ctx).Omit("Participant").Create(p).Error
}

func (r *PostgresParticipantRepository) GetParticipantByID(ctx context.Context, id uint) (*models.PartyParticipant, error) {
	var p models.PartyParticipant
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresParticipantRepository) GetParticipant(ctx context.Context, partyID, userID uint) (*models.PartyParticipant, error) {
	var p models.PartyParticipant
	err := r.db.WithContext(ctx).
		Where("party_id = ? AND participant_id = ?", partyID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresParticipantRepository) UpdateStatus(ctx context.Context, id uint, status models.ParticipationStatus) error {
	return r.db.WithContext(ctx).Model(&models.PartyParticipant{}).Where("id = ?", id).Update("status", status).Error
}

// ListByParty returns participants of a party, oldest request first,
// optionally restricted to some statuses.
func (r *PostgresParticipantRepository) ListByParty(ctx context.Context, partyID uint, statuses ...models.ParticipationStatus) ([]models.PartyParticipant, error) {
	q := r.db.WithContext(ctx).Preload("Participant").Where("party_id = ?", partyID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []models.PartyParticipant
	err := q.Order("id").Find(&out).Error
	return out, err
}

func (r *PostgresParticipantRepository) CountByStatus(ctx context.Context, partyID uint, status models.ParticipationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PartyParticipant{}).
		Where("party_id = ? AND status = ?", partyID, status).
		Count(&count).Error
	return count, err
}

func (r *PostgresParticipantRepository) CountApprovedByParties(ctx context.Context, partyIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(partyIDs))
	if len(partyIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PartyID uint
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&models.PartyParticipant{}).
		Select("party_id, COUNT(*) AS count").
		Where("party_id IN ? AND status = ?", partyIDs, models.StatusApproved).
		Group("party_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PartyID] = row.Count
	}
	return out, nil
}

func (r *PostgresParticipantRepository) CountByUser(ctx context.Context, userID uint, statuses ...models.ParticipationStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PartyParticipant{}).Where("participant_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}
