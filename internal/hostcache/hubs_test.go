package hostcache

import (
	"testing"

	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

func req(id ids.GameId) hubcache.GameStartRequest {
	return hubcache.GameStartRequest{GameID: id}
}

func TestHighestCapacityHubPicksLeastLoaded(t *testing.T) {
	c := NewGameHubsCache()
	a, b := ids.NewHubId(), ids.NewHubId()
	require.NoError(t, c.InsertHub(a, 4))
	require.NoError(t, c.InsertHub(b, 4))
	require.NoError(t, c.AddPendingGame(a, 1, req(1)))
	require.NoError(t, c.AddPendingGame(a, 2, req(2)))

	id, rec, ok := c.HighestCapacityHub()
	require.True(t, ok)
	require.Equal(t, b, id)
	require.Equal(t, 4, rec.EffectiveCapacity())
}

func TestHighestNonzeroCapacityHubExcludesFullHubs(t *testing.T) {
	c := NewGameHubsCache()
	full := ids.NewHubId()
	require.NoError(t, c.InsertHub(full, 1))
	require.NoError(t, c.AddPendingGame(full, 1, req(1)))

	_, _, ok := c.HighestNonzeroCapacityHub()
	require.False(t, ok)
}

func TestUpgradePendingGameMovesToRunning(t *testing.T) {
	c := NewGameHubsCache()
	hub := ids.NewHubId()
	require.NoError(t, c.InsertHub(hub, 2))
	require.NoError(t, c.AddPendingGame(hub, 1, req(1)))

	require.NoError(t, c.UpgradePendingGame(hub, 1))

	rec, _ := c.Get(hub)
	_, pending := rec.PendingGames[1]
	_, running := rec.RunningGames[1]
	require.False(t, pending)
	require.True(t, running)
}

func TestUpgradePendingGameRejectsUnknownGame(t *testing.T) {
	c := NewGameHubsCache()
	hub := ids.NewHubId()
	require.NoError(t, c.InsertHub(hub, 2))

	require.ErrorIs(t, c.UpgradePendingGame(hub, 99), ErrGameNotFound)
}

func TestRemoveHubReturnsItsGames(t *testing.T) {
	c := NewGameHubsCache()
	hub := ids.NewHubId()
	require.NoError(t, c.InsertHub(hub, 2))
	require.NoError(t, c.AddPendingGame(hub, 1, req(1)))

	rec, ok := c.RemoveHub(hub)
	require.True(t, ok)
	require.Contains(t, rec.PendingGames, ids.GameId(1))

	_, ok = c.Get(hub)
	require.False(t, ok)
}

func TestAddPendingGameRejectsGameIDAlreadyOnAnotherHub(t *testing.T) {
	c := NewGameHubsCache()
	a, b := ids.NewHubId(), ids.NewHubId()
	require.NoError(t, c.InsertHub(a, 4))
	require.NoError(t, c.InsertHub(b, 4))
	require.NoError(t, c.AddPendingGame(a, 1, req(1)))

	require.ErrorIs(t, c.AddPendingGame(b, 1, req(1)), ErrGameAlreadyTracked)
}

func TestAddPendingGameRejectsGameIDAlreadyRunningOnAnotherHub(t *testing.T) {
	c := NewGameHubsCache()
	a, b := ids.NewHubId(), ids.NewHubId()
	require.NoError(t, c.InsertHub(a, 4))
	require.NoError(t, c.InsertHub(b, 4))
	require.NoError(t, c.AddPendingGame(a, 1, req(1)))
	require.NoError(t, c.UpgradePendingGame(a, 1))

	require.ErrorIs(t, c.AddPendingGame(b, 1, req(1)), ErrGameAlreadyTracked)
}

func TestRemoveHubFreesItsGameIDsForReuse(t *testing.T) {
	c := NewGameHubsCache()
	a, b := ids.NewHubId(), ids.NewHubId()
	require.NoError(t, c.InsertHub(a, 4))
	require.NoError(t, c.InsertHub(b, 4))
	require.NoError(t, c.AddPendingGame(a, 1, req(1)))

	_, ok := c.RemoveHub(a)
	require.True(t, ok)

	require.NoError(t, c.AddPendingGame(b, 1, req(1)))
}
