package hubcache

import (
	"testing"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestPendingGameExtract(t *testing.T) {
	c := NewPendingGamesCache(PendingGamesCacheConfig{LaunchTimeout: time.Minute})
	req := GameStartRequest{GameID: 1}
	require.NoError(t, c.Insert(req, time.Unix(0, 0)))

	p, ok := c.Extract(1)
	require.True(t, ok)
	require.Equal(t, ids.GameId(1), p.Request.GameID)

	_, ok = c.Get(1)
	require.False(t, ok)
}

func TestPendingGameDrainExpired(t *testing.T) {
	c := NewPendingGamesCache(PendingGamesCacheConfig{LaunchTimeout: 5 * time.Second})
	born := time.Unix(0, 0)
	require.NoError(t, c.Insert(GameStartRequest{GameID: 1}, born))

	expired := c.DrainExpired(born.Add(time.Second))
	require.Empty(t, expired)

	expired = c.DrainExpired(born.Add(6 * time.Second))
	require.Len(t, expired, 1)
	require.Equal(t, 0, c.Len())
}

func TestPendingGameDuplicateInsertRejected(t *testing.T) {
	c := NewPendingGamesCache(PendingGamesCacheConfig{LaunchTimeout: time.Minute})
	require.NoError(t, c.Insert(GameStartRequest{GameID: 1}, time.Unix(0, 0)))
	err := c.Insert(GameStartRequest{GameID: 1}, time.Unix(0, 0))
	require.ErrorIs(t, err, ErrPendingGameExists)
}
