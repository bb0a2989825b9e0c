package models

import "time"

const (
	NotificationTypeParty  = "party"
	NotificationTypeNotice = "notice"
)

// Notification classifications
const (
	ClassifyParticipationApply     = "participation_apply"
	ClassifyParticipationApproved  = "participation_approved"
	ClassifyParticipationRejected  = "participation_rejected"
	ClassifyParticipationCancelled = "participation_cancelled"
	ClassifyPartyDetailsUpdated    = "details_updated"
	ClassifyPartyClosed            = "closed"
	ClassifyPartyComment           = "comment"
	ClassifyAnnouncement           = "announcement"
)

// Notification is addressed to one user, or to everyone when IsGlobal is set.
type Notification struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Type           string    `json:"type" gorm:"size:100;index"`
	Classification string    `json:"classification" gorm:"size:100"`
	RelatedID      uint      `json:"related_id"`
	Message        string    `json:"message"`
	IsGlobal       bool      `json:"is_global" gorm:"default:false;index"`
	TargetUserID   *uint     `json:"target_user_id,omitempty" gorm:"index"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// NotificationRead marks a notification as read by a user.
type NotificationRead struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	NotificationID uint      `json:"notification_id" gorm:"uniqueIndex:idx_notification_read_user"`
	UserID         uint      `json:"user_id" gorm:"uniqueIndex:idx_notification_read_user"`
	CreatedAt      time.Time `json:"created_at"`
}

type ReadNotificationsRequest struct {
	ReadNotificationList []uint `json:"read_notification_list" validate:"required,min=1,dive,gt=0"`
}
