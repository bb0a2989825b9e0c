package models

import "time"

// ParticipationStatus is the lifecycle state of a PartyParticipant row.
type ParticipationStatus int

const (
	StatusPending ParticipationStatus = iota
	StatusApproved
	StatusRejected
	StatusCancelled
)

func (s ParticipationStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s ParticipationStatus) Valid() bool {
	return s >= StatusPending && s <= StatusCancelled
}

// Active statuses block a new participation request for the same party.
func (s ParticipationStatus) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// ParticipantRole is who is asking for a status change.
type ParticipantRole int

const (
	RoleOrganizer ParticipantRole = iota
	RoleParticipant
)

// CanTransition is the full participation rule table:
//
//	organizer:   pending -> approved | rejected
//	participant: pending | approved -> cancelled
func CanTransition(role ParticipantRole, from, to ParticipationStatus) bool {
	switch role {
	case RoleOrganizer:
		return from == StatusPending && (to == StatusApproved || to == StatusRejected)
	case RoleParticipant:
		return from.Active() && to == StatusCancelled
	}
	return false
}

// PartyParticipant is a user's request to join a party. There is at most one
// row per (party, participant).
type PartyParticipant struct {
	ID            uint                `json:"id" gorm:"primaryKey"`
	PartyID       uint                `json:"party_id" gorm:"uniqueIndex:idx_party_participant"`
	ParticipantID uint                `json:"participant_id" gorm:"uniqueIndex:idx_party_participant"`
	Participant   User                `json:"-" gorm:"foreignKey:ParticipantID"`
	Status        ParticipationStatus `json:"status" gorm:"default:0;index"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type ChangeStatusRequest struct {
	NewStatus ParticipationStatus `json:"new_status" validate:"gte=0,lte=3"`
}
