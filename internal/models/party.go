package models

import "time"

// Party is a meetup organised by a user.
type Party struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Title            string    `json:"title" gorm:"size:255"`
	Body             string    `json:"body"`
	GatherAt         time.Time `json:"gather_at" gorm:"index"`
	PlaceID          uint      `json:"place_id"`
	PlaceName        string    `json:"place_name" gorm:"size:255"`
	Address          string    `json:"address" gorm:"size:255"`
	Longitude        float64   `json:"longitude"`
	Latitude         float64   `json:"latitude"`
	OrganizerID      uint      `json:"organizer_id" gorm:"index"`
	Organizer        User      `json:"-" gorm:"foreignKey:OrganizerID"`
	ParticipantLimit int       `json:"participant_limit" gorm:"default:0"`
	ParticipantCost  int       `json:"participant_cost" gorm:"default:0"`
	SportID          uint      `json:"sport_id" gorm:"index"`
	Sport            Sport     `json:"-" gorm:"foreignKey:SportID"`
	Notice           string    `json:"notice"`
	IsActive         bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasCapacityFor reports whether one more participant fits given the
// number already approved. A limit of zero or less means unlimited.
func (p *Party) HasCapacityFor(approved int64) bool {
	if p.ParticipantLimit <= 0 {
		return true
	}
	return approved < int64(p.ParticipantLimit)
}

func (p *Party) IsExpired(now time.Time) bool {
	return p.GatherAt.Before(now)
}

type PartyComment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PartyID     uint      `json:"party_id" gorm:"index"`
	CommenterID uint      `json:"commenter_id" gorm:"index"`
	Commenter   User      `json:"-" gorm:"foreignKey:CommenterID"`
	Content     string    `json:"content"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreatePartyRequest struct {
	Title            string  `json:"title" validate:"required,max=255"`
	Body             string  `json:"body" validate:"max=5000"`
	GatherDate       string  `json:"gather_date" validate:"required,datetime=2006-01-02"`
	GatherTime       string  `json:"gather_time" validate:"required,datetime=15:04"`
	PlaceID          uint    `json:"place_id"`
	PlaceName        string  `json:"place_name" validate:"max=255"`
	Address          string  `json:"address" validate:"max=255"`
	Longitude        float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Latitude         float64 `json:"latitude" validate:"gte=-90,lte=90"`
	ParticipantLimit int     `json:"participant_limit" validate:"gte=0"`
	ParticipantCost  int     `json:"participant_cost" validate:"gte=0"`
	SportID          uint    `json:"sport_id" validate:"required"`
	Notice           string  `json:"notice" validate:"max=2000"`
}

// UpdatePartyRequest carries only the fields being changed.
type UpdatePartyRequest struct {
	Title            *string  `json:"title,omitempty" validate:"omitempty,max=255"`
	Body             *string  `json:"body,omitempty" validate:"omitempty,max=5000"`
	GatherDate       *string  `json:"gather_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GatherTime       *string  `json:"gather_time,omitempty" validate:"omitempty,datetime=15:04"`
	PlaceID          *uint    `json:"place_id,omitempty"`
	PlaceName        *string  `json:"place_name,omitempty" validate:"omitempty,max=255"`
	Address          *string  `json:"address,omitempty" validate:"omitempty,max=255"`
	Longitude        *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Latitude         *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	ParticipantLimit *int     `json:"participant_limit,omitempty" validate:"omitempty,gte=0"`
	ParticipantCost  *int     `json:"participant_cost,omitempty" validate:"omitempty,gte=0"`
	SportID          *uint    `json:"sport_id,omitempty"`
	Notice           *string  `json:"notice,omitempty" validate:"omitempty,max=2000"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

// PartyListFilter narrows the party list endpoint.
type PartyListFilter struct {
	SportIDs      []uint
	IsActive      *bool
	GatherDateMin *time.Time
	GatherDateMax *time.Time
	Search        string
	Page          int
	PageSize      int
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
