package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
)

const NotificationPageSize = 10

// NotificationView is a notification with the reader's read state.
type NotificationView struct {
	models.Notification
	IsRead bool `json:"is_read"`
}

type NotificationPage struct {
	Notifications []NotificationView
	Page          int
	PageSize      int
	TotalPages    int
	Total         int64
}

type NotificationService struct {
	notifications repositories.NotificationRepository
	log           *zap.Logger
}

func NewNotificationService(notifications repositories.NotificationRepository, log *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, log: log.Named("notification")}
}

// List returns one page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, page int) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.notifications.GetForUser(ctx, userID, page, NotificationPageSize)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	ids := make([]uint, 0, len(items))
	for _, n := range items {
		ids = append(ids, n.ID)
	}
	read, err := s.notifications.GetReadIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load read state: %w", err)
	}

	views := make([]NotificationView, 0, len(items))
	for _, n := range items {
		views = append(views, NotificationView{Notification: n, IsRead: read[n.ID]})
	}

	return &NotificationPage{
		Notifications: views,
		Page:          page,
		PageSize:      NotificationPageSize,
		TotalPages:    int(math.Ceil(float64(total) / float64(NotificationPageSize))),
		Total:         total,
	}, nil
}

// MarkRead records reads for ids the user can see; others are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return Invalid("read_notification_list must not be empty")
	}
	if err := s.notifications.MarkAsRead(ctx, userID, ids); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.GetUnreadCount(ctx, userID)
}

// Broadcast stores a notice visible to every user.
func (s *NotificationService) Broadcast(ctx context.Context, classification, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return Invalid("message is required")
	}
	err := s.notifications.CreateNotifications(ctx, []models.Notification{{
		Type:           models.NotificationTypeNotice,
		Classification: classification,
		Message:        message,
		IsGlobal:       true,
	}})
	if err != nil {
		return fmt.Errorf("broadcast notification: %w", err)
	}
	s.log.Info("global notification sent", zap.String("classification", classification))
	return nil
}

// NotificationGroups buckets notifications by age for the grouped view.
type NotificationGroups struct {
	Today     []NotificationView `json:"today"`
	Yesterday []NotificationView `json:"yesterday"`
	ThisWeek  []NotificationView `json:"thisWeek"`
	Older     []NotificationView `json:"older"`
}

// GroupByAge splits items by calendar day in loc relative to now. ThisWeek
// holds the rest of the last seven days.
func GroupByAge(items []NotificationView, now time.Time, loc *time.Location) NotificationGroups {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)
	weekStart := today.AddDate(0, 0, -7)

	g := NotificationGroups{
		Today:     []NotificationView{},
		Yesterday: []NotificationView{},
		ThisWeek:  []NotificationView{},
		Older:     []NotificationView{},
	}
	for _, n := range items {
		at := n.CreatedAt.In(loc)
		switch {
		case !at.Before(today):
			g.Today = append(g.Today, n)
		case !at.Before(yesterday):
			g.Yesterday = append(g.Yesterday, n)
		case !at.Before(weekStart):
			g.ThisWeek = append(g.ThisWeek, n)
		default:
			g.Older = append(g.Older, n)
		}
	}
	return g
}
