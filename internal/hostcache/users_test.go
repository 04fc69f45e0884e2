package hostcache

import (
	"testing"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestUserStartsIdle(t *testing.T) {
	c := NewUsersCache()
	user := ids.NewUserId()
	c.Insert(user, ids.ConnectionNative)

	info, ok := c.Get(user)
	require.True(t, ok)
	require.Equal(t, Idle, info.State.Kind)
}

func TestUpdateStateUnknownUser(t *testing.T) {
	c := NewUsersCache()
	err := c.UpdateState(ids.NewUserId(), UserState{Kind: InLobby})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetUserStatesSkipsMissingUsers(t *testing.T) {
	c := NewUsersCache()
	present := ids.NewUserId()
	missing := ids.NewUserId()
	c.Insert(present, ids.ConnectionNative)

	c.SetUserStates([]ids.UserId{present, missing}, UserState{Kind: InGame})

	info, _ := c.Get(present)
	require.Equal(t, InGame, info.State.Kind)
	_, ok := c.Get(missing)
	require.False(t, ok)
}
