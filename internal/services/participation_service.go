package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
)

// ParticipationService owns the party membership lifecycle. Every successful
// transition writes exactly one notification to the counterparty in the same
// transaction as the status change.
type ParticipationService struct {
	store *repositories.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewParticipationService(store *repositories.Store, log *zap.Logger) *ParticipationService {
	return &ParticipationService{store: store, log: log.Named("participation"), now: time.Now}
}

// Participate files a join request for userID. A previously cancelled request
// is reopened instead of creating a second row.
func (s *ParticipationService) Participate(ctx context.Context, partyID, userID uint) (*models.PartyParticipant, error) {
	var result *models.PartyParticipant

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		party, err := tx.Parties.GetPartyByID(ctx, partyID)
		if err != nil {
			return notFoundOr(err, "party")
		}
		if party.OrganizerID == userID {
			return Invalid("the organizer cannot participate in their own party")
		}
		if !party.IsActive {
			return Invalid("party is closed")
		}
		if party.IsExpired(s.now()) {
			return Invalid("party gather time has already passed")
		}

		user, err := tx.Users.GetUserByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user")
		}

		existing, err := tx.Participants.GetParticipant(ctx, partyID, userID)
		switch {
		case err == nil:
			switch existing.Status {
			case models.StatusPending, models.StatusApproved:
				return Conflict("an active participation request already exists")
			case models.StatusRejected:
				return Invalid("participation request was rejected by the organizer")
			}
			if err := tx.Participants.UpdateStatus(ctx, existing.ID, models.StatusPending); err != nil {
				return fmt.Errorf("reopen participation: %w", err)
			}
			existing.Status = models.StatusPending
			result = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = &models.PartyParticipant{PartyID: partyID, ParticipantID: userID, Status: models.StatusPending}
			if err := tx.Participants.CreateParticipant(ctx, result); err != nil {
				return conflictOr(err, "an active participation request already exists", "create participation")
			}
		default:
			return fmt.Errorf("load participation: %w", err)
		}

		return notifyOne(ctx, tx, party.OrganizerID, party.ID, models.ClassifyParticipationApply,
			fmt.Sprintf("%s requested to join %q.", user.Name, party.Title))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participation requested", zap.Uint("party_id", partyID), zap.Uint("user_id", userID))
	return result, nil
}

// ChangeStatusByOrganizer approves or rejects a pending request.
func (s *ParticipationService) ChangeStatusByOrganizer(ctx context.Context, partyID, participationID, actorID uint, to models.ParticipationStatus) (*models.PartyParticipant, error) {
	var result *models.PartyParticipant

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		party, err := tx.Parties.GetPartyByID(ctx, partyID)
		if err != nil {
			return notFoundOr(err, "party")
		}
		if party.OrganizerID != actorID {
			return Forbidden("only the organizer can change participation status")
		}

		participation, err := tx.Participants.GetParticipantByID(ctx, participationID)
		if err != nil {
			return notFoundOr(err, "participation")
		}
		if participation.PartyID != party.ID {
			return NotFound("participation not found")
		}

		if !to.Valid() || !models.CanTransition(models.RoleOrganizer, participation.Status, to) {
			return Invalid("cannot change participation from %s to %s", participation.Status, to)
		}

		if to == models.StatusApproved {
			approved, err := tx.Participants.CountByStatus(ctx, party.ID, models.StatusApproved)
			if err != nil {
				return fmt.Errorf("count approved: %w", err)
			}
			if !party.HasCapacityFor(approved) {
				return Invalid("party is already full")
			}
		}

		if err := tx.Participants.UpdateStatus(ctx, participation.ID, to); err != nil {
			return fmt.Errorf("update participation: %w", err)
		}
		participation.Status = to
		result = participation

		classification := models.ClassifyParticipationApproved
		message := fmt.Sprintf("Your request to join %q was approved.", party.Title)
		if to == models.StatusRejected {
			classification = models.ClassifyParticipationRejected
			message = fmt.Sprintf("Your request to join %q was declined.", party.Title)
		}
		return notifyOne(ctx, tx, participation.ParticipantID, party.ID, classification, message)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participation status changed by organizer",
		zap.Uint("party_id", partyID),
		zap.Uint("participation_id", participationID),
		zap.Stringer("status", to))
	return result, nil
}

// CancelByParticipant lets a participant withdraw their own pending or
// approved request. Cancelled is the only status a participant may request.
func (s *ParticipationService) CancelByParticipant(ctx context.Context, partyID, actorID uint, to models.ParticipationStatus) (*models.PartyParticipant, error) {
	var result *models.PartyParticipant

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		party, err := tx.Parties.GetPartyByID(ctx, partyID)
		if err != nil {
			return notFoundOr(err, "party")
		}

		participation, err := tx.Participants.GetParticipant(ctx, party.ID, actorID)
		if err != nil {
			return notFoundOr(err, "participation")
		}

		if !models.CanTransition(models.RoleParticipant, participation.Status, to) {
			return Invalid("cannot change participation from %s to %s", participation.Status, to)
		}

		user, err := tx.Users.GetUserByID(ctx, actorID)
		if err != nil {
			return notFoundOr(err, "user")
		}

		if err := tx.Participants.UpdateStatus(ctx, participation.ID, to); err != nil {
			return fmt.Errorf("update participation: %w", err)
		}
		participation.Status = to
		result = participation

		return notifyOne(ctx, tx, party.OrganizerID, party.ID, models.ClassifyParticipationCancelled,
			fmt.Sprintf("%s cancelled their participation in %q.", user.Name, party.Title))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participation cancelled", zap.Uint("party_id", partyID), zap.Uint("user_id", actorID))
	return result, nil
}

func notifyOne(ctx context.Context, tx *repositories.Store, recipientID, partyID uint, classification, message string) error {
	recipient := recipientID
	err := tx.Notifications.CreateNotifications(ctx, []models.Notification{{
		Type:           models.NotificationTypeParty,
		Classification: classification,
		RelatedID:      partyID,
		Message:        message,
		TargetUserID:   &recipient,
	}})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
