package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/testutil"
)

var kst = time.FixedZone("KST", 9*60*60)

type partyFixture struct {
	db        *gorm.DB
	svc       *PartyService
	comments  *PartyCommentService
	organizer *models.User
	member    *models.User
	sport     *models.Sport
	now       time.Time
}

func newPartyFixture(t *testing.T) *partyFixture {
	db := testutil.NewSQLiteDB(t)
	store := repositories.NewStore(db)
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, kst)

	svc := NewPartyService(store, zap.NewNop(), kst)
	svc.now = func() time.Time { return now }

	return &partyFixture{
		db:        db,
		svc:       svc,
		comments:  NewPartyCommentService(store, zap.NewNop(), kst),
		organizer: testutil.CreateUser(t, db, "organizer"),
		member:    testutil.CreateUser(t, db, "member"),
		sport:     testutil.CreateSport(t, db, "freediving"),
		now:       now,
	}
}

func (f *partyFixture) createReq() models.CreatePartyRequest {
	return models.CreatePartyRequest{
		Title:            "Morning dive",
		Body:             "Meet at the pier",
		GatherDate:       "2030-05-02",
		GatherTime:       "09:00",
		PlaceName:        "Pier 3",
		ParticipantLimit: 4,
		SportID:          f.sport.ID,
		Notice:           "Bring a wetsuit",
	}
}

func TestCreateParty(t *testing.T) {
	ctx := context.Background()

	t.Run("stores gather time in UTC", func(t *testing.T) {
		f := newPartyFixture(t)

		party, err := f.svc.CreateParty(ctx, f.organizer.ID, f.createReq())
		require.NoError(t, err)
		assert.Equal(t, time.Date(2030, 5, 2, 0, 0, 0, 0, time.UTC), party.GatherAt)
		assert.True(t, party.IsActive)
		assert.Equal(t, f.organizer.ID, party.OrganizerID)
	})

	t.Run("gather time must be in the future", func(t *testing.T) {
		f := newPartyFixture(t)
		req := f.createReq()
		req.GatherDate = "2030-05-01"
		req.GatherTime = "11:59"

		_, err := f.svc.CreateParty(ctx, f.organizer.ID, req)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown sport", func(t *testing.T) {
		f := newPartyFixture(t)
		req := f.createReq()
		req.SportID = 999

		_, err := f.svc.CreateParty(ctx, f.organizer.ID, req)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateParty(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies approved participants only", func(t *testing.T) {
		f := newPartyFixture(t)
		party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
		pending := testutil.CreateUser(t, f.db, "pending")
		testutil.CreateParticipant(t, f.db, party, f.member, models.StatusApproved)
		testutil.CreateParticipant(t, f.db, party, pending, models.StatusPending)

		title := "Sunset dive"
		updated, err := f.svc.UpdateParty(ctx, party.ID, f.organizer.ID, models.UpdatePartyRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)

		notes := testutil.NotificationsFor(t, f.db, f.member.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, models.ClassifyPartyDetailsUpdated, notes[0].Classification)
		assert.Empty(t, testutil.NotificationsFor(t, f.db, pending.ID))
	})

	t.Run("closing sends a closed notice", func(t *testing.T) {
		f := newPartyFixture(t)
		party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
		testutil.CreateParticipant(t, f.db, party, f.member, models.StatusApproved)

		inactive := false
		_, err := f.svc.UpdateParty(ctx, party.ID, f.organizer.ID, models.UpdatePartyRequest{IsActive: &inactive})
		require.NoError(t, err)

		notes := testutil.NotificationsFor(t, f.db, f.member.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, models.ClassifyPartyClosed, notes[0].Classification)
	})

	t.Run("only the organizer may update", func(t *testing.T) {
		f := newPartyFixture(t)
		party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)

		title := "hijacked"
		_, err := f.svc.UpdateParty(ctx, party.ID, f.member.ID, models.UpdatePartyRequest{Title: &title})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("limit cannot drop below approved count", func(t *testing.T) {
		f := newPartyFixture(t)
		party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
		testutil.CreateParticipant(t, f.db, party, f.member, models.StatusApproved)
		other := testutil.CreateUser(t, f.db, "other")
		testutil.CreateParticipant(t, f.db, party, other, models.StatusApproved)

		limit := 1
		_, err := f.svc.UpdateParty(ctx, party.ID, f.organizer.ID, models.UpdatePartyRequest{ParticipantLimit: &limit})
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Empty(t, testutil.NotificationsFor(t, f.db, f.member.ID))
	})
}

func TestDeleteParty(t *testing.T) {
	ctx := context.Background()
	f := newPartyFixture(t)
	party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
	testutil.CreateParticipant(t, f.db, party, f.member, models.StatusApproved)

	err := f.svc.DeleteParty(ctx, party.ID, f.member.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.EqualError(t, err, "Only the organizer can delete this party.")

	require.NoError(t, f.svc.DeleteParty(ctx, party.ID, f.organizer.ID))

	var count int64
	f.db.Model(&models.PartyParticipant{}).Where("party_id = ?", party.ID).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, f.svc.DeleteParty(ctx, party.ID, f.organizer.ID), ErrNotFound)
}

func TestGetDetail(t *testing.T) {
	ctx := context.Background()
	f := newPartyFixture(t)
	party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
	require.NoError(t, f.db.Model(party).Update("notice", "gate code 1234").Error)
	pending := testutil.CreateUser(t, f.db, "pending")
	testutil.CreateParticipant(t, f.db, party, f.member, models.StatusApproved)
	testutil.CreateParticipant(t, f.db, party, pending, models.StatusPending)

	t.Run("organizer", func(t *testing.T) {
		d, err := f.svc.GetDetail(ctx, party.ID, f.organizer.ID)
		require.NoError(t, err)
		assert.True(t, d.IsUserOrganizer)
		assert.Equal(t, 2, d.CurrentParticipants)
		require.Len(t, d.ApprovedParticipants, 2)
		assert.True(t, d.ApprovedParticipants[0].IsOrganizer)
		require.Len(t, d.PendingParticipants, 1)
		assert.Equal(t, pending.ID, d.PendingParticipants[0].UserID)
		require.NotNil(t, d.Notice)
		assert.Equal(t, "gate code 1234", *d.Notice)
		assert.Nil(t, d.UserStatus)
	})

	t.Run("approved participant", func(t *testing.T) {
		d, err := f.svc.GetDetail(ctx, party.ID, f.member.ID)
		require.NoError(t, err)
		assert.Nil(t, d.PendingParticipants)
		require.NotNil(t, d.Notice)
		require.NotNil(t, d.UserStatus)
		assert.Equal(t, models.StatusApproved, *d.UserStatus)
	})

	t.Run("pending participant", func(t *testing.T) {
		d, err := f.svc.GetDetail(ctx, party.ID, pending.ID)
		require.NoError(t, err)
		assert.Nil(t, d.Notice)
		require.NotNil(t, d.UserStatus)
		assert.Equal(t, models.StatusPending, *d.UserStatus)
	})

	t.Run("anonymous", func(t *testing.T) {
		d, err := f.svc.GetDetail(ctx, party.ID, 0)
		require.NoError(t, err)
		assert.False(t, d.IsUserOrganizer)
		assert.Nil(t, d.Notice)
		assert.Nil(t, d.PendingParticipants)
	})

	t.Run("unknown party", func(t *testing.T) {
		_, err := f.svc.GetDetail(ctx, 999, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListParties(t *testing.T) {
	ctx := context.Background()
	f := newPartyFixture(t)
	first := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
	second := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(48*time.Hour), 0)
	testutil.CreateParticipant(t, f.db, first, f.member, models.StatusApproved)

	items, total, err := f.svc.ListParties(ctx, models.PartyListFilter{}, f.member.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)

	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, "1/0", items[0].ParticipantsInfo)
	assert.Equal(t, "2/4", items[1].ParticipantsInfo)
	assert.False(t, items[1].IsUserOrganizer)

	lo, hi, err := f.svc.DayRange("2030-05-02", "2030-05-02")
	require.NoError(t, err)
	items, total, err = f.svc.ListParties(ctx, models.PartyListFilter{GatherDateMin: lo, GatherDateMax: hi}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	_, _, err = f.svc.DayRange("05/02/2030", "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestPartyStatsAndLists(t *testing.T) {
	ctx := context.Background()
	f := newPartyFixture(t)
	party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
	testutil.CreateParticipant(t, f.db, party, f.member, models.StatusPending)

	require.NoError(t, f.svc.LikeParty(ctx, party.ID, f.member.ID))
	assert.ErrorIs(t, f.svc.LikeParty(ctx, party.ID, f.member.ID), ErrConflict)
	assert.ErrorIs(t, f.svc.LikeParty(ctx, 999, f.member.ID), ErrNotFound)

	stats, err := f.svc.Stats(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, PartyStats{Organized: 0, Participated: 1, Liked: 1}, *stats)

	liked, err := f.svc.ListLiked(ctx, f.member.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, party.ID, liked[0].ID)

	participated, err := f.svc.ListParticipated(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Len(t, participated, 1)

	organized, err := f.svc.ListOrganized(ctx, f.organizer.ID)
	require.NoError(t, err)
	require.Len(t, organized, 1)
	assert.True(t, organized[0].IsUserOrganizer)

	require.NoError(t, f.svc.UnlikeParty(ctx, party.ID, f.member.ID))
	assert.ErrorIs(t, f.svc.UnlikeParty(ctx, party.ID, f.member.ID), ErrNotFound)
}

func TestDeactivateExpired(t *testing.T) {
	ctx := context.Background()
	f := newPartyFixture(t)
	expired := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(-time.Minute), 4)
	upcoming := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(time.Minute), 4)

	n, err := f.svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var closed, open models.Party
	require.NoError(t, f.db.First(&closed, expired.ID).Error)
	assert.False(t, closed.IsActive)
	require.NoError(t, f.db.First(&open, upcoming.ID).Error)
	assert.True(t, open.IsActive)

	n, err = f.svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeactivateExpiredSingleUpdate(t *testing.T) {
	m := testutil.NewMockDB(t)
	svc := NewPartyService(repositories.NewStore(m.DB), zap.NewNop(), kst)

	m.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "parties" SET "is_active"=$1,"updated_at"=$2 WHERE is_active = $3 AND gather_at < $4`)).
		WithArgs(false, sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.DeactivateExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	m.ExpectationsWereMet(t)
}

func TestPartyComments(t *testing.T) {
	ctx := context.Background()
	f := newPartyFixture(t)
	party := testutil.CreateParty(t, f.db, f.organizer, f.now.Add(24*time.Hour), 4)
	testutil.CreateParticipant(t, f.db, party, f.member, models.StatusApproved)
	rejected := testutil.CreateUser(t, f.db, "rejected")
	testutil.CreateParticipant(t, f.db, party, rejected, models.StatusRejected)

	c, err := f.comments.AddComment(ctx, party.ID, f.member.ID, "see you there")
	require.NoError(t, err)
	assert.True(t, c.IsWriter)
	assert.Equal(t, "member", c.CommenterProfile.Name)

	notes := testutil.NotificationsFor(t, f.db, f.organizer.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.ClassifyPartyComment, notes[0].Classification)
	assert.Empty(t, testutil.NotificationsFor(t, f.db, f.member.ID))
	assert.Empty(t, testutil.NotificationsFor(t, f.db, rejected.ID))

	_, err = f.comments.UpdateComment(ctx, party.ID, c.ID, f.organizer.ID, "edited")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.comments.UpdateComment(ctx, party.ID, c.ID, f.member.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	list, err := f.comments.ListComments(ctx, party.ID, f.organizer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsWriter)

	require.NoError(t, f.comments.DeleteComment(ctx, party.ID, c.ID, f.member.ID))
	list, err = f.comments.ListComments(ctx, party.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, f.comments.DeleteComment(ctx, party.ID, c.ID, f.member.ID), ErrNotFound)
}
