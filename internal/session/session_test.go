package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/store"
)

func newTestSessions(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv, err := store.NewHybrid(mr.Addr(), "", 0, "", store.PGPoolConfig{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return New(zap.NewNop(), kv, time.Hour), mr
}

func TestResolve_FirstResolutionIsSticky(t *testing.T) {
	s, mr := newTestSessions(t)
	ctx := context.Background()

	cur := s.Resolve(ctx, "s1", "Asia/Karachi")
	assert.Equal(t, "PKR", cur.Code)
	assert.True(t, mr.Exists("session:s1"))
	assert.Equal(t, time.Hour, mr.TTL("session:s1"))

	// a later signal from another region does not change the session currency
	cur = s.Resolve(ctx, "s1", "Europe/London")
	assert.Equal(t, "PKR", cur.Code)

	st, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "PK", st.Region)
	assert.False(t, st.CreatedAt.IsZero())
}

func TestResolve_UnknownSignalDefaultsToUSD(t *testing.T) {
	s, _ := newTestSessions(t)
	cur := s.Resolve(context.Background(), "s2", "Mars/Olympus")
	assert.Equal(t, "USD", cur.Code)
}

func TestResolve_RedisDownFallsBackToSignal(t *testing.T) {
	s, mr := newTestSessions(t)
	mr.Close()

	cur := s.Resolve(context.Background(), "s3", "Asia/Dubai")
	assert.Equal(t, "AED", cur.Code)
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestSessions(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkIntroSeen(t *testing.T) {
	s, _ := newTestSessions(t)
	ctx := context.Background()

	st, err := s.MarkIntroSeen(ctx, "s4", "GB")
	require.NoError(t, err)
	assert.True(t, st.IntroSeen)
	assert.Equal(t, "GBP", st.Currency.Code)

	st, err = s.Get(ctx, "s4")
	require.NoError(t, err)
	assert.True(t, st.IntroSeen)

	assert.Equal(t, "GBP", s.Resolve(ctx, "s4", "US").Code)
}
