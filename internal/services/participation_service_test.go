package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/testutil"
)

type participationFixture struct {
	db        *gorm.DB
	svc       *ParticipationService
	organizer *models.User
	member    *models.User
	party     *models.Party
}

func newParticipationFixture(t *testing.T, limit int) *participationFixture {
	db := testutil.NewSQLiteDB(t)
	organizer := testutil.CreateUser(t, db, "organizer")
	member := testutil.CreateUser(t, db, "member")
	party := testutil.CreateParty(t, db, organizer, time.Now().Add(48*time.Hour), limit)

	return &participationFixture{
		db:        db,
		svc:       NewParticipationService(repositories.NewStore(db), zap.NewNop()),
		organizer: organizer,
		member:    member,
		party:     party,
	}
}

func (f *participationFixture) status(t *testing.T, id uint) models.ParticipationStatus {
	t.Helper()
	var p models.PartyParticipant
	require.NoError(t, f.db.First(&p, id).Error)
	return p.Status
}

// staleParticipantReads makes party_participants lookups miss until the
// returned func is called, the way a request sees the table when a concurrent
// request inserts right after its existence check.
func staleParticipantReads(t *testing.T, db *gorm.DB) (restore func()) {
	t.Helper()
	var stale atomic.Bool
	stale.Store(true)
	err := db.Callback().Query().After("gorm:query").Register("test:stale_participants", func(tx *gorm.DB) {
		if stale.Load() && tx.Statement.Table == "party_participants" {
			tx.Error = gorm.ErrRecordNotFound
		}
	})
	require.NoError(t, err)
	return func() { stale.Store(false) }
}

func TestParticipateConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newParticipationFixture(t, 4)

	_, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
	require.NoError(t, err)

	restore := staleParticipantReads(t, f.db)
	_, err = f.svc.Participate(ctx, f.party.ID, f.member.ID)
	restore()
	assert.ErrorIs(t, err, ErrConflict)

	var rows int64
	require.NoError(t, f.db.Model(&models.PartyParticipant{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
	assert.Len(t, testutil.NotificationsFor(t, f.db, f.organizer.ID), 1, "rolled back request sends nothing")
}

func TestParticipate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending request and notifies the organizer", func(t *testing.T) {
		f := newParticipationFixture(t, 4)

		p, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, p.Status)

		notes := testutil.NotificationsFor(t, f.db, f.organizer.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, models.ClassifyParticipationApply, notes[0].Classification)
		assert.Equal(t, f.party.ID, notes[0].RelatedID)
		assert.Empty(t, testutil.NotificationsFor(t, f.db, f.member.ID))
	})

	t.Run("organizer cannot join own party", func(t *testing.T) {
		f := newParticipationFixture(t, 4)

		_, err := f.svc.Participate(ctx, f.party.ID, f.organizer.ID)
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Empty(t, testutil.NotificationsFor(t, f.db, f.organizer.ID))
	})

	t.Run("rejected after gather time", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		f.svc.now = func() time.Time { return f.party.GatherAt.Add(time.Minute) }

		_, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
		assert.ErrorIs(t, err, ErrInvalid)

		var count int64
		f.db.Model(&models.PartyParticipant{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("rejected when party is closed", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		require.NoError(t, f.db.Model(f.party).Update("is_active", false).Error)

		_, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("duplicate active request conflicts", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusApproved)

		_, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("cancelled request is reopened in place", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		old := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusCancelled)

		p, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
		require.NoError(t, err)
		assert.Equal(t, old.ID, p.ID)
		assert.Equal(t, models.StatusPending, f.status(t, old.ID))
	})

	t.Run("rejected request cannot reapply", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusRejected)

		_, err := f.svc.Participate(ctx, f.party.ID, f.member.ID)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown party", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		_, err := f.svc.Participate(ctx, 9999, f.member.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestChangeStatusByOrganizer(t *testing.T) {
	ctx := context.Background()

	for _, to := range []models.ParticipationStatus{models.StatusApproved, models.StatusRejected} {
		t.Run("pending to "+to.String(), func(t *testing.T) {
			f := newParticipationFixture(t, 4)
			p := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusPending)

			got, err := f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.organizer.ID, to)
			require.NoError(t, err)
			assert.Equal(t, to, got.Status)
			assert.Equal(t, to, f.status(t, p.ID))

			notes := testutil.NotificationsFor(t, f.db, f.member.ID)
			require.Len(t, notes, 1)
			assert.Empty(t, testutil.NotificationsFor(t, f.db, f.organizer.ID))
		})
	}

	t.Run("only the organizer may decide", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		p := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusPending)

		_, err := f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.member.ID, models.StatusApproved)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, models.StatusPending, f.status(t, p.ID))
	})

	t.Run("organizer cannot cancel or reopen", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		p := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusPending)

		for _, to := range []models.ParticipationStatus{models.StatusCancelled, models.StatusPending, 42} {
			_, err := f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.organizer.ID, to)
			assert.ErrorIs(t, err, ErrInvalid, "to=%d", to)
		}
		assert.Empty(t, testutil.NotificationsFor(t, f.db, f.member.ID))
	})

	t.Run("only pending requests can be decided", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		p := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusApproved)

		_, err := f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.organizer.ID, models.StatusRejected)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("approval respects the participant limit", func(t *testing.T) {
		f := newParticipationFixture(t, 1)
		other := testutil.CreateUser(t, f.db, "other")
		testutil.CreateParticipant(t, f.db, f.party, other, models.StatusApproved)
		p := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusPending)

		_, err := f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.organizer.ID, models.StatusApproved)
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.organizer.ID, models.StatusRejected)
		assert.NoError(t, err)
	})

	t.Run("participation of another party", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		otherParty := testutil.CreateParty(t, f.db, f.organizer, time.Now().Add(time.Hour), 0)
		p := testutil.CreateParticipant(t, f.db, otherParty, f.member, models.StatusPending)

		_, err := f.svc.ChangeStatusByOrganizer(ctx, f.party.ID, p.ID, f.organizer.ID, models.StatusApproved)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCancelByParticipant(t *testing.T) {
	ctx := context.Background()

	for _, from := range []models.ParticipationStatus{models.StatusPending, models.StatusApproved} {
		t.Run("from "+from.String(), func(t *testing.T) {
			f := newParticipationFixture(t, 4)
			p := testutil.CreateParticipant(t, f.db, f.party, f.member, from)

			got, err := f.svc.CancelByParticipant(ctx, f.party.ID, f.member.ID, models.StatusCancelled)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, got.Status)
			assert.Equal(t, models.StatusCancelled, f.status(t, p.ID))

			notes := testutil.NotificationsFor(t, f.db, f.organizer.ID)
			require.Len(t, notes, 1)
			assert.Equal(t, models.ClassifyParticipationCancelled, notes[0].Classification)
		})
	}

	t.Run("participant may only request cancelled", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		p := testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusPending)

		_, err := f.svc.CancelByParticipant(ctx, f.party.ID, f.member.ID, models.StatusApproved)
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Equal(t, models.StatusPending, f.status(t, p.ID))
		assert.Empty(t, testutil.NotificationsFor(t, f.db, f.organizer.ID))
	})

	t.Run("rejected request cannot be cancelled", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusRejected)

		_, err := f.svc.CancelByParticipant(ctx, f.party.ID, f.member.ID, models.StatusCancelled)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("cannot cancel someone else's request", func(t *testing.T) {
		f := newParticipationFixture(t, 4)
		testutil.CreateParticipant(t, f.db, f.party, f.member, models.StatusPending)
		stranger := testutil.CreateUser(t, f.db, "stranger")

		_, err := f.svc.CancelByParticipant(ctx, f.party.ID, stranger.ID, models.StatusCancelled)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
