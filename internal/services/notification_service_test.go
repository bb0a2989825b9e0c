package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/testutil"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := repositories.NewPostgresNotificationRepository(db)
	svc := NewNotificationService(repo, zap.NewNop())

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	var notes []models.Notification
	for i := 0; i < 11; i++ {
		target := alice.ID
		notes = append(notes, models.Notification{
			Type:           models.NotificationTypeParty,
			Classification: models.ClassifyParticipationApply,
			Message:        "join request",
			TargetUserID:   &target,
		})
	}
	target := bob.ID
	notes = append(notes, models.Notification{Type: models.NotificationTypeParty, Message: "for bob", TargetUserID: &target})
	require.NoError(t, repo.CreateNotifications(ctx, notes))
	require.NoError(t, svc.Broadcast(ctx, "notice", "maintenance tonight"))
	assert.ErrorIs(t, svc.Broadcast(ctx, "notice", "  "), ErrInvalid)

	page, err := svc.List(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Notifications, NotificationPageSize)
	assert.True(t, page.Notifications[0].IsGlobal, "newest first")
	assert.Equal(t, models.NotificationTypeNotice, page.Notifications[0].Type)

	second, err := svc.List(ctx, alice.ID, 2)
	require.NoError(t, err)
	assert.Len(t, second.Notifications, 2)

	unread, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 12, unread)

	bobsNote := notes[len(notes)-1].ID
	require.NoError(t, svc.MarkRead(ctx, alice.ID, []uint{page.Notifications[0].ID, page.Notifications[1].ID, bobsNote}))
	require.NoError(t, svc.MarkRead(ctx, alice.ID, []uint{page.Notifications[0].ID}))

	unread, err = svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, unread)

	page, err = svc.List(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.True(t, page.Notifications[0].IsRead)
	assert.True(t, page.Notifications[1].IsRead)
	assert.False(t, page.Notifications[2].IsRead)

	bobUnread, err := svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, bobUnread, "reading someone else's notification has no effect")

	assert.ErrorIs(t, svc.MarkRead(ctx, alice.ID, nil), ErrInvalid)
}

func TestGroupByAge(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	now := time.Date(2030, 5, 10, 9, 0, 0, 0, kst)
	at := func(day, hour int) NotificationView {
		return NotificationView{Notification: models.Notification{CreatedAt: time.Date(2030, 5, day, hour, 0, 0, 0, kst).UTC()}}
	}

	g := GroupByAge([]NotificationView{
		at(10, 0),
		at(9, 23),
		at(9, 0),
		at(4, 12),
		at(3, 0),
		at(2, 23),
	}, now, kst)

	assert.Len(t, g.Today, 1)
	assert.Len(t, g.Yesterday, 2)
	assert.Len(t, g.ThisWeek, 2)
	assert.Len(t, g.Older, 1)
}
