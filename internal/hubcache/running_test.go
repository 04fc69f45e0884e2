package hubcache

import (
	"context"
	"testing"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/supervisor"
	"github.com/stretchr/testify/require"
)

func TestRunningGamesCacheSurfacesCompletion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sup, err := supervisor.Spawn[InstanceCommand, InstanceReport](ctx, "sh", []string{"-c", "exit 0"}, nil, time.Second, nil)
	require.NoError(t, err)

	c := NewRunningGamesCache()
	c.Insert(&RunningGame{GameID: 1, Supervisor: sup})

	select {
	case completion := <-c.Completions:
		require.Equal(t, ids.GameId(1), completion.GameID)
		require.True(t, completion.Status.Clean)
	case <-time.After(4 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestRunningGamesCacheRemove(t *testing.T) {
	c := NewRunningGamesCache()
	c.games[1] = &RunningGame{GameID: 1}

	_, ok := c.Remove(1)
	require.True(t, ok)
	require.Equal(t, 0, c.Len())
}
