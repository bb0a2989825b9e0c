package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "handoff", "abc", time.Minute))
	require.NoError(t, s.Set(ctx, "forever", "x", 0))

	v, err := s.Get(ctx, "handoff")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "handoff")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreGetDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", "v", time.Hour))

	v, err := s.GetDel(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = s.GetDel(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreIncr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Incr(ctx, "views")
		}()
	}
	wg.Wait()

	n, err := s.IncrBy(ctx, "views", -10)
	require.NoError(t, err)
	assert.EqualValues(t, 40, n)

	require.NoError(t, s.Set(ctx, "name", "not a number", 0))
	_, err = s.Incr(ctx, "name")
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type payload struct {
		UserID uint   `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, SetJSON(ctx, s, "p", payload{UserID: 7, Token: "t"}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, s, "p", &got))
	assert.Equal(t, payload{UserID: 7, Token: "t"}, got)

	assert.ErrorIs(t, GetJSON(ctx, s, "missing", &got), ErrMiss)
	require.NoError(t, s.Delete(ctx, "p"))
	assert.Zero(t, s.Len())
}
