package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
)

type PartyCommentDetail struct {
	ID               uint               `json:"id"`
	CommenterProfile models.UserCompact `json:"commenter_profile"`
	Content          string             `json:"content"`
	PostedDate       string             `json:"posted_date"`
	IsWriter         bool               `json:"is_writer"`
}

type PartyCommentService struct {
	store *repositories.Store
	log   *zap.Logger
	loc   *time.Location
}

func NewPartyCommentService(store *repositories.Store, log *zap.Logger, loc *time.Location) *PartyCommentService {
	if loc == nil {
		loc = time.UTC
	}
	return &PartyCommentService{store: store, log: log.Named("party_comment"), loc: loc}
}

func (s *PartyCommentService) ListComments(ctx context.Context, partyID, viewerID uint) ([]PartyCommentDetail, error) {
	if _, err := s.store.Parties.GetPartyByID(ctx, partyID); err != nil {
		return nil, notFoundOr(err, "party")
	}
	comments, err := s.store.PartyComments.ListComments(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	out := make([]PartyCommentDetail, 0, len(comments))
	for i := range comments {
		out = append(out, s.detail(&comments[i], viewerID))
	}
	return out, nil
}

// AddComment stores the comment and notifies the organizer and every active
// participant except the author.
func (s *PartyCommentService) AddComment(ctx context.Context, partyID, userID uint, content string) (*PartyCommentDetail, error) {
	var comment *models.PartyComment

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		party, err := tx.Parties.GetPartyByID(ctx, partyID)
		if err != nil {
			return notFoundOr(err, "party")
		}
		author, err := tx.Users.GetUserByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user")
		}

		comment = &models.PartyComment{PartyID: partyID, CommenterID: userID, Content: content}
		if err := tx.PartyComments.CreateComment(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		comment.Commenter = *author

		participants, err := tx.Participants.ListByParty(ctx, partyID, models.StatusPending, models.StatusApproved)
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}
		recipients := []uint{party.OrganizerID}
		for _, p := range participants {
			recipients = append(recipients, p.ParticipantID)
		}

		message := fmt.Sprintf("%s commented on %q.", author.Name, party.Title)
		var notes []models.Notification
		for _, id := range recipients {
			if id == userID {
				continue
			}
			target := id
			notes = append(notes, models.Notification{
				Type:           models.NotificationTypeParty,
				Classification: models.ClassifyPartyComment,
				RelatedID:      partyID,
				Message:        message,
				TargetUserID:   &target,
			})
		}
		return tx.Notifications.CreateNotifications(ctx, notes)
	})
	if err != nil {
		return nil, err
	}

	d := s.detail(comment, userID)
	return &d, nil
}

func (s *PartyCommentService) UpdateComment(ctx context.Context, partyID, commentID, userID uint, content string) (*PartyCommentDetail, error) {
	comment, err := s.owned(ctx, partyID, commentID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.PartyComments.UpdateContent(ctx, comment.ID, content); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	comment.Content = content
	d := s.detail(comment, userID)
	return &d, nil
}

func (s *PartyCommentService) DeleteComment(ctx context.Context, partyID, commentID, userID uint) error {
	comment, err := s.owned(ctx, partyID, commentID, userID)
	if err != nil {
		return err
	}
	return s.store.PartyComments.SoftDelete(ctx, comment.ID)
}

func (s *PartyCommentService) owned(ctx context.Context, partyID, commentID, userID uint) (*models.PartyComment, error) {
	comment, err := s.store.PartyComments.GetCommentByID(ctx, partyID, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	if comment.CommenterID != userID {
		return nil, Forbidden("only the writer can change this comment")
	}
	return comment, nil
}

func (s *PartyCommentService) detail(c *models.PartyComment, viewerID uint) PartyCommentDetail {
	return PartyCommentDetail{
		ID:               c.ID,
		CommenterProfile: c.Commenter.ToCompact(),
		Content:          c.Content,
		PostedDate:       c.CreatedAt.In(s.loc).Format(postedLayout),
		IsWriter:         viewerID != 0 && c.CommenterID == viewerID,
	}
}
