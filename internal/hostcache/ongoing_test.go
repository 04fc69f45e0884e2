package hostcache

import (
	"testing"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestOngoingGameUserLookup(t *testing.T) {
	c := NewOngoingGamesCache(OngoingGamesCacheConfig{StartBuffer: time.Minute})
	u1, u2 := ids.NewUserId(), ids.NewUserId()
	g := &OngoingGame{
		GameID: 1,
		HubID:  ids.NewHubId(),
		StartInfos: []StartInfo{
			{UserID: u1, ClientID: 1},
			{UserID: u2, ClientID: 2},
		},
	}
	require.NoError(t, c.Insert(g, time.Unix(0, 0)))

	found, ok := c.GetUserGame(u1)
	require.True(t, ok)
	require.Equal(t, ids.GameId(1), found.GameID)

	_, removed := c.Remove(1)
	require.True(t, removed)
	_, ok = c.GetUserGame(u1)
	require.False(t, ok)
}

func TestOngoingGameExpiresWhenHubGoesSilent(t *testing.T) {
	c := NewOngoingGamesCache(OngoingGamesCacheConfig{StartBuffer: 5 * time.Second})
	g := &OngoingGame{GameID: 1, HubID: ids.NewHubId()}
	born := time.Unix(0, 0)
	require.NoError(t, c.Insert(g, born))

	expired := c.DrainExpired(born.Add(6 * time.Second))
	require.Len(t, expired, 1)
	_, ok := c.Get(1)
	require.False(t, ok)
}
