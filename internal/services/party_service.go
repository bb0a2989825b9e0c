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

const (
	PartyPageSize = 8

	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	postedLayout   = "2006-01-02T15:04:05-07:00"
	gatherAtLayout = dateLayout + " " + timeLayout
)

// PartySummary is the common shape of a party in every response.
type PartySummary struct {
	ID               uint               `json:"id"`
	Title            string             `json:"title"`
	SportID          uint               `json:"sport_id"`
	SportName        string             `json:"sport_name"`
	GatherDate       string             `json:"gather_date"`
	GatherTime       string             `json:"gather_time"`
	Price            int                `json:"price"`
	Body             string             `json:"body"`
	OrganizerProfile models.UserCompact `json:"organizer_profile"`
	PostedDate       string             `json:"posted_date"`
	IsActive         bool               `json:"is_active"`
	PlaceID          uint               `json:"place_id"`
	PlaceName        string             `json:"place_name"`
	Address          string             `json:"address"`
	Longitude        float64            `json:"longitude"`
	Latitude         float64            `json:"latitude"`
}

type PartyListItem struct {
	PartySummary
	ParticipantsInfo string `json:"participants_info"`
	IsUserOrganizer  bool   `json:"is_user_organizer"`
}

type ParticipantProfile struct {
	models.UserCompact
	ParticipationID *uint `json:"participation_id"`
	IsOrganizer     bool  `json:"is_organizer"`
}

type PartyDetail struct {
	PartySummary
	MaxParticipants      int                         `json:"max_participants"`
	CurrentParticipants  int                         `json:"current_participants"`
	IsUserOrganizer      bool                        `json:"is_user_organizer"`
	IsLiked              bool                        `json:"is_liked"`
	UserStatus           *models.ParticipationStatus `json:"user_participation_status"`
	PendingParticipants  []ParticipantProfile        `json:"pending_participants"`
	ApprovedParticipants []ParticipantProfile        `json:"approved_participants"`
	Notice               *string                     `json:"notice"`
}

type PartyStats struct {
	Organized    int   `json:"created_count"`
	Participated int   `json:"participated_count"`
	Liked        int64 `json:"liked_count"`
}

// PartyService implements party management around the participation core.
type PartyService struct {
	store *repositories.Store
	log   *zap.Logger
	loc   *time.Location
	now   func() time.Time
}

func NewPartyService(store *repositories.Store, log *zap.Logger, loc *time.Location) *PartyService {
	if loc == nil {
		loc = time.UTC
	}
	return &PartyService{store: store, log: log.Named("party"), loc: loc, now: time.Now}
}

// ParseGatherAt reads a local date and time in the service zone.
func (s *PartyService) ParseGatherAt(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(gatherAtLayout, date+" "+clock, s.loc)
	if err != nil {
		return time.Time{}, Invalid("invalid gather date or time")
	}
	return t.UTC(), nil
}

// DayRange converts inclusive local dates into a [min, max) instant range.
// Empty inputs produce nil bounds.
func (s *PartyService) DayRange(minDate, maxDate string) (*time.Time, *time.Time, error) {
	var lo, hi *time.Time
	if minDate != "" {
		t, err := time.ParseInLocation(dateLayout, minDate, s.loc)
		if err != nil {
			return nil, nil, Invalid("invalid gather_date_min")
		}
		lo = &t
	}
	if maxDate != "" {
		t, err := time.ParseInLocation(dateLayout, maxDate, s.loc)
		if err != nil {
			return nil, nil, Invalid("invalid gather_date_max")
		}
		t = t.AddDate(0, 0, 1)
		hi = &t
	}
	return lo, hi, nil
}

func (s *PartyService) CreateParty(ctx context.Context, organizerID uint, req models.CreatePartyRequest) (*models.Party, error) {
	gatherAt, err := s.ParseGatherAt(req.GatherDate, req.GatherTime)
	if err != nil {
		return nil, err
	}
	if !gatherAt.After(s.now()) {
		return nil, Invalid("gather time must be in the future")
	}
	if _, err := s.store.Sports.GetSportByID(ctx, req.SportID); err != nil {
		return nil, notFoundOr(err, "sport")
	}

	party := &models.Party{
		Title:            req.Title,
		Body:             req.Body,
		GatherAt:         gatherAt,
		PlaceID:          req.PlaceID,
		PlaceName:        req.PlaceName,
		Address:          req.Address,
		Longitude:        req.Longitude,
		Latitude:         req.Latitude,
		OrganizerID:      organizerID,
		ParticipantLimit: req.ParticipantLimit,
		ParticipantCost:  req.ParticipantCost,
		SportID:          req.SportID,
		Notice:           req.Notice,
		IsActive:         true,
	}
	if err := s.store.Parties.CreateParty(ctx, party); err != nil {
		return nil, fmt.Errorf("create party: %w", err)
	}

	s.log.Info("party created", zap.Uint("party_id", party.ID), zap.Uint("organizer_id", organizerID))
	return party, nil
}

// UpdateParty applies the given fields and notifies every approved
// participant. Deactivating the party sends a closed notice instead.
func (s *PartyService) UpdateParty(ctx context.Context, partyID, actorID uint, req models.UpdatePartyRequest) (*models.Party, error) {
	var party *models.Party

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		party, err = tx.Parties.GetPartyByID(ctx, partyID)
		if err != nil {
			return notFoundOr(err, "party")
		}
		if party.OrganizerID != actorID {
			return Forbidden("Only the organizer can update this party.")
		}

		if err := s.applyUpdate(ctx, tx, party, req); err != nil {
			return err
		}
		if err := tx.Parties.UpdateParty(ctx, party); err != nil {
			return fmt.Errorf("update party: %w", err)
		}

		approved, err := tx.Participants.ListByParty(ctx, party.ID, models.StatusApproved)
		if err != nil {
			return fmt.Errorf("list approved: %w", err)
		}

		classification := models.ClassifyPartyDetailsUpdated
		message := fmt.Sprintf("The details of %q have changed.", party.Title)
		if !party.IsActive {
			classification = models.ClassifyPartyClosed
			message = fmt.Sprintf("%q has been closed by the organizer.", party.Title)
		}

		notes := make([]models.Notification, 0, len(approved))
		for _, p := range approved {
			target := p.ParticipantID
			notes = append(notes, models.Notification{
				Type:           models.NotificationTypeParty,
				Classification: classification,
				RelatedID:      party.ID,
				Message:        message,
				TargetUserID:   &target,
			})
		}
		return tx.Notifications.CreateNotifications(ctx, notes)
	})
	if err != nil {
		return nil, err
	}
	return party, nil
}

func (s *PartyService) applyUpdate(ctx context.Context, tx *repositories.Store, party *models.Party, req models.UpdatePartyRequest) error {
	if req.GatherDate != nil || req.GatherTime != nil {
		local := party.GatherAt.In(s.loc)
		date, clock := local.Format(dateLayout), local.Format(timeLayout)
		if req.GatherDate != nil {
			date = *req.GatherDate
		}
		if req.GatherTime != nil {
			clock = *req.GatherTime
		}
		gatherAt, err := s.ParseGatherAt(date, clock)
		if err != nil {
			return err
		}
		if !gatherAt.After(s.now()) {
			return Invalid("gather time must be in the future")
		}
		party.GatherAt = gatherAt
	}
	if req.SportID != nil {
		if _, err := tx.Sports.GetSportByID(ctx, *req.SportID); err != nil {
			return notFoundOr(err, "sport")
		}
		party.SportID = *req.SportID
	}
	if req.ParticipantLimit != nil {
		if *req.ParticipantLimit > 0 {
			approved, err := tx.Participants.CountByStatus(ctx, party.ID, models.StatusApproved)
			if err != nil {
				return fmt.Errorf("count approved: %w", err)
			}
			if int64(*req.ParticipantLimit) < approved {
				return Invalid("participant limit is below the number of approved participants")
			}
		}
		party.ParticipantLimit = *req.ParticipantLimit
	}

	if req.Title != nil {
		party.Title = *req.Title
	}
	if req.Body != nil {
		party.Body = *req.Body
	}
	if req.PlaceID != nil {
		party.PlaceID = *req.PlaceID
	}
	if req.PlaceName != nil {
		party.PlaceName = *req.PlaceName
	}
	if req.Address != nil {
		party.Address = *req.Address
	}
	if req.Longitude != nil {
		party.Longitude = *req.Longitude
	}
	if req.Latitude != nil {
		party.Latitude = *req.Latitude
	}
	if req.ParticipantCost != nil {
		party.ParticipantCost = *req.ParticipantCost
	}
	if req.Notice != nil {
		party.Notice = *req.Notice
	}
	if req.IsActive != nil {
		party.IsActive = *req.IsActive
	}
	return nil
}

func (s *PartyService) DeleteParty(ctx context.Context, partyID, actorID uint) error {
	party, err := s.store.Parties.GetPartyByID(ctx, partyID)
	if err != nil {
		return notFoundOr(err, "party")
	}
	if party.OrganizerID != actorID {
		return Forbidden("Only the organizer can delete this party.")
	}
	if err := s.store.Parties.DeleteParty(ctx, partyID); err != nil {
		return notFoundOr(err, "party")
	}
	s.log.Info("party deleted", zap.Uint("party_id", partyID))
	return nil
}

// SetActive opens or closes a party on behalf of its organizer.
func (s *PartyService) SetActive(ctx context.Context, partyID, actorID uint, active bool) error {
	party, err := s.store.Parties.GetPartyByID(ctx, partyID)
	if err != nil {
		return notFoundOr(err, "party")
	}
	if party.OrganizerID != actorID {
		return Forbidden("Only the organizer can change this party.")
	}
	if party.IsActive == active {
		return nil
	}
	return s.store.Parties.SetActive(ctx, partyID, active)
}

// GetDetail renders a party for viewerID (0 for anonymous). Pending requests
// are only shown to the organizer and the notice only to the organizer and
// approved participants.
func (s *PartyService) GetDetail(ctx context.Context, partyID, viewerID uint) (*PartyDetail, error) {
	party, err := s.store.Parties.GetPartyByID(ctx, partyID)
	if err != nil {
		return nil, notFoundOr(err, "party")
	}
	participants, err := s.store.Participants.ListByParty(ctx, partyID, models.StatusPending, models.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	isOrganizer := viewerID != 0 && party.OrganizerID == viewerID
	detail := &PartyDetail{
		PartySummary:    s.summary(party),
		MaxParticipants: party.ParticipantLimit,
		IsUserOrganizer: isOrganizer,
		ApprovedParticipants: []ParticipantProfile{{
			UserCompact: party.Organizer.ToCompact(),
			IsOrganizer: true,
		}},
	}

	var pending []ParticipantProfile
	viewerApproved := false
	for _, p := range participants {
		id := p.ID
		profile := ParticipantProfile{UserCompact: p.Participant.ToCompact(), ParticipationID: &id}
		switch p.Status {
		case models.StatusApproved:
			detail.ApprovedParticipants = append(detail.ApprovedParticipants, profile)
			if p.ParticipantID == viewerID {
				viewerApproved = true
			}
		case models.StatusPending:
			pending = append(pending, profile)
		}
	}
	detail.CurrentParticipants = len(detail.ApprovedParticipants)

	if isOrganizer {
		if pending == nil {
			pending = []ParticipantProfile{}
		}
		detail.PendingParticipants = pending
	}
	if isOrganizer || viewerApproved {
		notice := party.Notice
		detail.Notice = &notice
	}

	if viewerID == 0 {
		return detail, nil
	}
	if !isOrganizer {
		own, err := s.store.Participants.GetParticipant(ctx, partyID, viewerID)
		switch {
		case err == nil:
			status := own.Status
			detail.UserStatus = &status
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("load participation: %w", err)
		}
	}
	liked, err := s.store.Likes.HasUserLikedParty(ctx, partyID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load like: %w", err)
	}
	detail.IsLiked = liked

	return detail, nil
}

func (s *PartyService) ListParties(ctx context.Context, filter models.PartyListFilter, viewerID uint) ([]PartyListItem, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = PartyPageSize
	}
	parties, total, err := s.store.Parties.ListParties(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list parties: %w", err)
	}
	items, err := s.listItems(ctx, parties, viewerID)
	return items, total, err
}

func (s *PartyService) ListOrganized(ctx context.Context, userID uint) ([]PartyListItem, error) {
	parties, err := s.store.Parties.ListOrganizedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list organized: %w", err)
	}
	return s.listItems(ctx, parties, userID)
}

func (s *PartyService) ListParticipated(ctx context.Context, userID uint) ([]PartyListItem, error) {
	parties, err := s.store.Parties.ListParticipatedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participated: %w", err)
	}
	return s.listItems(ctx, parties, userID)
}

func (s *PartyService) ListLiked(ctx context.Context, userID uint) ([]PartyListItem, error) {
	parties, err := s.store.Likes.ListLikedParties(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list liked: %w", err)
	}
	return s.listItems(ctx, parties, userID)
}

func (s *PartyService) Stats(ctx context.Context, userID uint) (*PartyStats, error) {
	organized, err := s.store.Parties.ListOrganizedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count organized: %w", err)
	}
	participated, err := s.store.Participants.CountByUser(ctx, userID, models.StatusPending, models.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("count participated: %w", err)
	}
	liked, err := s.store.Likes.CountPartyLikesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count liked: %w", err)
	}
	return &PartyStats{Organized: len(organized), Participated: int(participated), Liked: liked}, nil
}

func (s *PartyService) Sports(ctx context.Context) ([]models.Sport, error) {
	return s.store.Sports.ListSports(ctx)
}

// DeactivateExpired closes every party whose gather time has passed.
func (s *PartyService) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Parties.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired parties: %w", err)
	}
	return n, nil
}

// LikeParty records a like; liking twice is a conflict.
func (s *PartyService) LikeParty(ctx context.Context, partyID, userID uint) error {
	if _, err := s.store.Parties.GetPartyByID(ctx, partyID); err != nil {
		return notFoundOr(err, "party")
	}
	liked, err := s.store.Likes.HasUserLikedParty(ctx, partyID, userID)
	if err != nil {
		return fmt.Errorf("load like: %w", err)
	}
	if liked {
		return Conflict("party already liked")
	}
	if err := s.store.Likes.CreatePartyLike(ctx, partyID, userID); err != nil {
		return conflictOr(err, "party already liked", "create like")
	}
	return nil
}

func (s *PartyService) UnlikeParty(ctx context.Context, partyID, userID uint) error {
	err := s.store.Likes.DeletePartyLike(ctx, partyID, userID)
	if errors.Is(err, repositories.ErrLikeNotFound) {
		return NotFound("like not found")
	}
	return err
}

func (s *PartyService) summary(p *models.Party) PartySummary {
	local := p.GatherAt.In(s.loc)
	return PartySummary{
		ID:               p.ID,
		Title:            p.Title,
		SportID:          p.SportID,
		SportName:        p.Sport.Name,
		GatherDate:       local.Format(dateLayout),
		GatherTime:       local.Format(timeLayout),
		Price:            p.ParticipantCost,
		Body:             p.Body,
		OrganizerProfile: p.Organizer.ToCompact(),
		PostedDate:       p.CreatedAt.In(s.loc).Format(postedLayout),
		IsActive:         p.IsActive,
		PlaceID:          p.PlaceID,
		PlaceName:        p.PlaceName,
		Address:          p.Address,
		Longitude:        p.Longitude,
		Latitude:         p.Latitude,
	}
}

func (s *PartyService) listItems(ctx context.Context, parties []models.Party, viewerID uint) ([]PartyListItem, error) {
	ids := make([]uint, 0, len(parties))
	for _, p := range parties {
		ids = append(ids, p.ID)
	}
	approved, err := s.store.Participants.CountApprovedByParties(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count approved: %w", err)
	}

	items := make([]PartyListItem, 0, len(parties))
	for i := range parties {
		p := &parties[i]
		items = append(items, PartyListItem{
			PartySummary:     s.summary(p),
			ParticipantsInfo: fmt.Sprintf("%d/%d", approved[p.ID]+1, p.ParticipantLimit),
			IsUserOrganizer:  viewerID != 0 && p.OrganizerID == viewerID,
		})
	}
	return items, nil
}
