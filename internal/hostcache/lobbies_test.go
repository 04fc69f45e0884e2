package hostcache

import (
	"errors"
	"testing"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("rejected")

type permissiveChecker struct{}

func (permissiveChecker) CheckLobby(*Lobby) error { return nil }
func (permissiveChecker) AllowNewMember(*Lobby, ids.UserId, LobbyMember, string) error {
	return nil
}
func (permissiveChecker) CanLaunch(*Lobby) bool { return true }

func newTestLobby(id ids.LobbyId, owner ids.UserId) *Lobby {
	return &Lobby{
		ID:      id,
		OwnerID: owner,
		Members: make(map[ids.UserId]LobbyMember),
	}
}

func TestInsertRejectedByChecker(t *testing.T) {
	c := NewLobbiesCache(LobbiesCacheConfig{Checker: rejectingChecker{}})
	err := c.Insert(newTestLobby(1, ids.NewUserId()))
	require.ErrorIs(t, err, ErrLobbyRejected)
}

type rejectingChecker struct{}

func (rejectingChecker) CheckLobby(*Lobby) error { return errSentinel }
func (rejectingChecker) AllowNewMember(*Lobby, ids.UserId, LobbyMember, string) error {
	return errSentinel
}
func (rejectingChecker) CanLaunch(*Lobby) bool { return false }

func TestSearchByIDReturnsPosition(t *testing.T) {
	c := NewLobbiesCache(LobbiesCacheConfig{Checker: permissiveChecker{}, MaxRequestSize: 10})
	require.NoError(t, c.Insert(newTestLobby(1, ids.NewUserId())))
	require.NoError(t, c.Insert(newTestLobby(2, ids.NewUserId())))

	res := c.Search(LobbySearchRequest{Kind: SearchByID, LobbyID: 1})
	require.Len(t, res.Lobbies, 1)
	require.Equal(t, ids.LobbyId(1), res.Lobbies[0].ID)
	require.Equal(t, 1, res.NumYounger)
	require.Equal(t, 2, res.Total)
}

func TestSearchClampsToMaxRequestSize(t *testing.T) {
	c := NewLobbiesCache(LobbiesCacheConfig{Checker: permissiveChecker{}, MaxRequestSize: 1})
	require.NoError(t, c.Insert(newTestLobby(1, ids.NewUserId())))
	require.NoError(t, c.Insert(newTestLobby(2, ids.NewUserId())))

	res := c.Search(LobbySearchRequest{Kind: SearchPageNewer, Num: 50})
	require.Len(t, res.Lobbies, 1)
}

func TestAddMemberWrongPassword(t *testing.T) {
	c := NewLobbiesCache(LobbiesCacheConfig{Checker: permissiveChecker{}})
	l := newTestLobby(1, ids.NewUserId())
	l.Password = "secret"
	require.NoError(t, c.Insert(l))

	err := c.AddMember(1, ids.NewUserId(), LobbyMember{}, "wrong")
	require.ErrorIs(t, err, ErrWrongPassword)
}

func TestRemoveMemberReportsEmpty(t *testing.T) {
	c := NewLobbiesCache(LobbiesCacheConfig{Checker: permissiveChecker{}})
	l := newTestLobby(1, ids.NewUserId())
	user := ids.NewUserId()
	l.Members[user] = LobbyMember{}
	require.NoError(t, c.Insert(l))

	empty, removed := c.RemoveMember(1, user)
	require.True(t, removed)
	require.True(t, empty)
}
