package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/services"
	"github.com/bluerally/buooy-backend/internal/testutil"
	"github.com/bluerally/buooy-backend/pkg/metrics"
)

func TestRegister(t *testing.T) {
	s := New(time.UTC, zap.NewNop(), nil)
	noop := func(context.Context) (int64, error) { return 0, nil }

	require.NoError(t, s.Register("a", "0 0 * * *", noop))
	assert.Error(t, s.Register("a", "0 0 * * *", noop), "duplicate name")
	assert.Error(t, s.Register("b", "not a spec", noop))

	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunNowRecordsMetrics(t *testing.T) {
	m := metrics.New()
	s := New(time.UTC, zap.NewNop(), m)

	var calls atomic.Int32
	require.NoError(t, s.Register("ok", "@every 1h", func(context.Context) (int64, error) {
		calls.Add(1)
		return 2, nil
	}))
	require.NoError(t, s.Register("broken", "@every 1h", func(context.Context) (int64, error) {
		return 0, errors.New("boom")
	}))

	n, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.EqualValues(t, 1, calls.Load())

	_, err = s.RunNow(context.Background(), "broken")
	assert.Error(t, err)

	assert.Equal(t, 1, promtest.CollectAndCount(m.Registry, "buooy_scheduler_rows_affected_total"))
}

func TestDeactivateExpiredJob(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	parties := services.NewPartyService(repositories.NewStore(db), zap.NewNop(), time.UTC)

	organizer := testutil.CreateUser(t, db, "organizer")
	past := testutil.CreateParty(t, db, organizer, time.Now().Add(-time.Hour), 4)
	future := testutil.CreateParty(t, db, organizer, time.Now().Add(24*time.Hour), 4)

	s := New(time.UTC, zap.NewNop(), nil)
	require.NoError(t, s.Register(DeactivateExpiredJob, "0 0 * * *", parties.DeactivateExpired))

	n, err := s.RunNow(ctx, DeactivateExpiredJob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var closed, open models.Party
	require.NoError(t, db.First(&closed, past.ID).Error)
	assert.False(t, closed.IsActive)
	require.NoError(t, db.First(&open, future.ID).Error)
	assert.True(t, open.IsActive)
}

func TestStartStop(t *testing.T) {
	s := New(time.UTC, zap.NewNop(), nil)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
