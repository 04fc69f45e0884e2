package hostproto

import (
	"testing"
	"time"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/hostcache"
	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/hubproto"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/tokens"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	toUsers map[ids.UserId][]codec.Tagged
	toHubs  map[ids.HubId][]codec.Tagged
}

func newRecordingSender() *recordingSender {
	return &recordingSender{toUsers: make(map[ids.UserId][]codec.Tagged), toHubs: make(map[ids.HubId][]codec.Tagged)}
}

func (s *recordingSender) SendToUser(u ids.UserId, m codec.Tagged) {
	s.toUsers[u] = append(s.toUsers[u], m)
}

func (s *recordingSender) SendToHub(h ids.HubId, m codec.Tagged) {
	s.toHubs[h] = append(s.toHubs[h], m)
}

type permissiveChecker struct{}

func (permissiveChecker) CheckLobby(*hostcache.Lobby) error { return nil }
func (permissiveChecker) AllowNewMember(*hostcache.Lobby, ids.UserId, hostcache.LobbyMember, string) error {
	return nil
}
func (permissiveChecker) CanLaunch(*hostcache.Lobby) bool { return true }

func newTestDriver() (*Driver, *recordingSender) {
	sender := newRecordingSender()
	cfg := Config{
		Lobbies:   hostcache.NewLobbiesCache(hostcache.LobbiesCacheConfig{Checker: permissiveChecker{}, MaxRequestSize: 50}),
		Pending:   hostcache.NewPendingLobbiesCache(hostcache.PendingLobbiesCacheConfig{AckTimeout: time.Minute}),
		Ongoing:   hostcache.NewOngoingGamesCache(hostcache.OngoingGamesCacheConfig{StartBuffer: time.Minute}),
		Users:     hostcache.NewUsersCache(),
		Hubs:      hostcache.NewGameHubsCache(),
		Minter:    tokens.NewMinter([]byte("k"), time.Minute),
		Users2Hub: sender,
		ToHub:     sender,
	}
	return New(cfg), sender
}

func TestMakeLobbyRequiresIdle(t *testing.T) {
	d, _ := newTestDriver()
	owner := ids.NewUserId()
	d.cfg.Users.Insert(owner, ids.ConnectionNative)

	idGen := func() ids.LobbyId { return 1 }
	_, ok, _ := d.HandleMakeLobby(owner, MakeLobbyRequest{}, idGen)
	require.True(t, ok)

	info, _ := d.cfg.Users.Get(owner)
	require.Equal(t, hostcache.InLobby, info.State.Kind)

	_, ok, reason := d.HandleMakeLobby(owner, MakeLobbyRequest{}, idGen)
	require.False(t, ok)
	require.NotEmpty(t, reason)
}

func TestJoinThenLeaveDestroysEmptyLobby(t *testing.T) {
	d, sender := newTestDriver()
	owner, joiner := ids.NewUserId(), ids.NewUserId()
	d.cfg.Users.Insert(owner, ids.ConnectionNative)
	d.cfg.Users.Insert(joiner, ids.ConnectionNative)

	_, ok, _ := d.HandleMakeLobby(owner, MakeLobbyRequest{}, func() ids.LobbyId { return 1 })
	require.True(t, ok)

	_, ok, _ = d.HandleJoinLobby(joiner, JoinLobbyRequest{LobbyID: 1})
	require.True(t, ok)

	ok, _ = d.HandleLeaveLobby(joiner, LeaveLobbyRequest{LobbyID: 1})
	require.True(t, ok)
	info, _ := d.cfg.Users.Get(joiner)
	require.Equal(t, hostcache.Idle, info.State.Kind)

	ok, _ = d.HandleLeaveLobby(owner, LeaveLobbyRequest{LobbyID: 1})
	require.True(t, ok)
	_, found := d.cfg.Lobbies.Get(1)
	require.False(t, found, "lobby must be destroyed once the owner leaves")
	require.NotEmpty(t, sender.toUsers)
}

func TestLaunchThenAllAckDispatchesToHub(t *testing.T) {
	d, sender := newTestDriver()
	owner := ids.NewUserId()
	d.cfg.Users.Insert(owner, ids.ConnectionNative)
	hub := ids.NewHubId()
	require.NoError(t, d.cfg.Hubs.InsertHub(hub, 4))

	_, ok, _ := d.HandleMakeLobby(owner, MakeLobbyRequest{}, func() ids.LobbyId { return 1 })
	require.True(t, ok)

	ok, reason := d.HandleLaunchLobbyGame(owner, LaunchLobbyGameRequest{LobbyID: 1}, time.Unix(0, 0))
	require.True(t, ok, reason)

	d.HandleAckPendingLobby(owner, AckPendingLobby{LobbyID: 1}, func() ids.GameId { return 99 })

	msgs := sender.toHubs[hub]
	require.Len(t, msgs, 1)
	start, ok := msgs[0].(hubproto.StartGame)
	require.True(t, ok)
	require.Equal(t, ids.GameId(99), start.Request.GameID)

	rec, _ := d.cfg.Hubs.Get(hub)
	require.Contains(t, rec.PendingGames, ids.GameId(99))
}

func TestLaunchFailsWithNoHubCapacity(t *testing.T) {
	d, sender := newTestDriver()
	owner := ids.NewUserId()
	d.cfg.Users.Insert(owner, ids.ConnectionNative)

	_, ok, _ := d.HandleMakeLobby(owner, MakeLobbyRequest{}, func() ids.LobbyId { return 1 })
	require.True(t, ok)
	ok, _ = d.HandleLaunchLobbyGame(owner, LaunchLobbyGameRequest{LobbyID: 1}, time.Unix(0, 0))
	require.True(t, ok)

	d.HandleAckPendingLobby(owner, AckPendingLobby{LobbyID: 1}, func() ids.GameId { return 99 })

	msgs := sender.toUsers[owner]
	require.NotEmpty(t, msgs)
	_, failed := msgs[len(msgs)-1].(PendingLobbyAckFail)
	require.True(t, failed)

	info, _ := d.cfg.Users.Get(owner)
	require.Equal(t, hostcache.Idle, info.State.Kind)
}

func TestGetConnectTokenRequiresInGame(t *testing.T) {
	d, _ := newTestDriver()
	user := ids.NewUserId()
	d.cfg.Users.Insert(user, ids.ConnectionNative)

	_, ok, _ := d.HandleGetConnectToken(user, GetConnectTokenRequest{GameID: 1}, time.Unix(0, 0))
	require.False(t, ok)

	require.NoError(t, d.cfg.Ongoing.Insert(&hostcache.OngoingGame{
		GameID:     1,
		StartInfos: []hostcache.StartInfo{{UserID: user, ClientID: 5}},
	}, time.Unix(0, 0)))
	_ = d.cfg.Users.UpdateState(user, hostcache.UserState{Kind: hostcache.InGame, GameID: 1})

	resp, ok, _ := d.HandleGetConnectToken(user, GetConnectTokenRequest{GameID: 1}, time.Unix(0, 0))
	require.True(t, ok)
	require.NotEmpty(t, resp.Token)
}

func TestHubGameStartFansOutConnectTokenAndSetsInGame(t *testing.T) {
	d, sender := newTestDriver()
	user := ids.NewUserId()
	d.cfg.Users.Insert(user, ids.ConnectionNative)
	hub := ids.NewHubId()
	require.NoError(t, d.cfg.Hubs.InsertHub(hub, 4))

	req := hubcache.GameStartRequest{GameID: 1, Members: []hubcache.GameMember{{UserID: user}}}
	require.NoError(t, d.cfg.Hubs.AddPendingGame(hub, 1, req))

	d.HandleHubGameStart(hub, hubproto.GameStart{
		GameID:       1,
		Request:      req,
		ConnectMetas: []hubproto.ConnectMeta{{GameID: 1, Opaque: []byte("127.0.0.1:9000")}},
		StartInfos:   []hubproto.StartInfo{{UserID: user, ClientID: 7}},
	}, time.Unix(0, 0))

	msgs := sender.toUsers[user]
	require.Len(t, msgs, 1)
	gs, ok := msgs[0].(GameStart)
	require.True(t, ok)
	require.NotEmpty(t, gs.Token)
	require.Equal(t, ids.ClientId(7), gs.ClientID)
	require.Equal(t, []byte("127.0.0.1:9000"), gs.ConnectInfo)

	info, _ := d.cfg.Users.Get(user)
	require.Equal(t, hostcache.InGame, info.State.Kind)

	rec, _ := d.cfg.Hubs.Get(hub)
	require.Contains(t, rec.RunningGames, ids.GameId(1))
}

func TestHubGameStartRejectsUnknownPendingGame(t *testing.T) {
	d, sender := newTestDriver()
	user := ids.NewUserId()
	d.cfg.Users.Insert(user, ids.ConnectionNative)
	hub := ids.NewHubId()
	require.NoError(t, d.cfg.Hubs.InsertHub(hub, 4))

	d.HandleHubGameStart(hub, hubproto.GameStart{
		GameID:     1,
		Request:    hubcache.GameStartRequest{GameID: 1},
		StartInfos: []hubproto.StartInfo{{UserID: user, ClientID: 7}},
	}, time.Unix(0, 0))

	require.Empty(t, sender.toUsers[user])
	info, _ := d.cfg.Users.Get(user)
	require.NotEqual(t, hostcache.InGame, info.State.Kind)
	_, found := d.cfg.Ongoing.Get(1)
	require.False(t, found)
}

func TestHubGameStartRejectsMismatchedRequest(t *testing.T) {
	d, sender := newTestDriver()
	user := ids.NewUserId()
	d.cfg.Users.Insert(user, ids.ConnectionNative)
	hub := ids.NewHubId()
	require.NoError(t, d.cfg.Hubs.InsertHub(hub, 4))
	require.NoError(t, d.cfg.Hubs.AddPendingGame(hub, 1, hubcache.GameStartRequest{GameID: 1, Members: []hubcache.GameMember{{UserID: user}}}))

	d.HandleHubGameStart(hub, hubproto.GameStart{
		GameID:     1,
		Request:    hubcache.GameStartRequest{GameID: 1, Members: []hubcache.GameMember{{UserID: ids.NewUserId()}}},
		StartInfos: []hubproto.StartInfo{{UserID: user, ClientID: 7}},
	}, time.Unix(0, 0))

	require.Empty(t, sender.toUsers[user])
	rec, _ := d.cfg.Hubs.Get(hub)
	require.Contains(t, rec.PendingGames, ids.GameId(1), "a rejected report must not upgrade the reservation")
}

func TestHubGameOverReturnsUsersToIdle(t *testing.T) {
	d, sender := newTestDriver()
	user := ids.NewUserId()
	d.cfg.Users.Insert(user, ids.ConnectionNative)
	hub := ids.NewHubId()
	require.NoError(t, d.cfg.Hubs.InsertHub(hub, 4))
	require.NoError(t, d.cfg.Hubs.AddPendingGame(hub, 1, hubcache.GameStartRequest{GameID: 1}))
	require.NoError(t, d.cfg.Hubs.UpgradePendingGame(hub, 1))
	require.NoError(t, d.cfg.Ongoing.Insert(&hostcache.OngoingGame{
		GameID:     1,
		HubID:      hub,
		StartInfos: []hostcache.StartInfo{{UserID: user}},
	}, time.Unix(0, 0)))
	_ = d.cfg.Users.UpdateState(user, hostcache.UserState{Kind: hostcache.InGame, GameID: 1})

	d.HandleHubGameOver(hubproto.GameOver{GameID: 1, OpaqueBytes: []byte("result")})

	info, _ := d.cfg.Users.Get(user)
	require.Equal(t, hostcache.Idle, info.State.Kind)
	require.NotEmpty(t, sender.toUsers[user])
}
