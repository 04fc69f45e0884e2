package hostproto

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/hostcache"
	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/hubproto"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/tokens"
)

// UserSender delivers a message to one connected user.
type UserSender interface {
	SendToUser(ids.UserId, codec.Tagged)
}

// HubSender delivers a message to one connected hub.
type HubSender interface {
	SendToHub(ids.HubId, codec.Tagged)
}

// Config bundles the caches and collaborators a Driver needs. Every field
// is exclusively owned by the driver that holds it (spec.md §3).
type Config struct {
	Lobbies   *hostcache.LobbiesCache
	Pending   *hostcache.PendingLobbiesCache
	Ongoing   *hostcache.OngoingGamesCache
	Users     *hostcache.UsersCache
	Hubs      *hostcache.GameHubsCache
	HubBuffer *hostcache.GameHubDisconnectBuffer
	Minter    *tokens.Minter
	Users2Hub UserSender
	ToHub     HubSender
	Logger    *slog.Logger
}

// Driver implements the user-facing and hub-facing protocol handlers of
// spec.md §4.14 on top of the host caches.
type Driver struct {
	cfg Config
}

func New(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// HandleLobbySearch answers a LobbySearch request; always permitted.
func (d *Driver) HandleLobbySearch(req LobbySearchRequest) LobbySearchResponse {
	return LobbySearchResponse{Result: d.cfg.Lobbies.Search(req.Req)}
}

// HandleMakeLobby creates a new lobby owned by user, requiring user to
// currently be Idle.
func (d *Driver) HandleMakeLobby(user ids.UserId, req MakeLobbyRequest, newID func() ids.LobbyId) (LobbyJoin, bool, string) {
	info, ok := d.cfg.Users.Get(user)
	if !ok || info.State.Kind != hostcache.Idle {
		return LobbyJoin{}, false, "user must be idle to create a lobby"
	}

	l := &hostcache.Lobby{
		ID:         newID(),
		OwnerID:    user,
		Password:   req.Password,
		CustomData: req.CustomData,
		Members:    map[ids.UserId]hostcache.LobbyMember{user: {Color: req.Color}},
	}
	if err := d.cfg.Lobbies.Insert(l); err != nil {
		return LobbyJoin{}, false, err.Error()
	}

	_ = d.cfg.Users.UpdateState(user, hostcache.UserState{Kind: hostcache.InLobby, LobbyID: l.ID})
	return LobbyJoin{Lobby: *l}, true, ""
}

// HandleJoinLobby adds user to an existing lobby, requiring user to
// currently be Idle.
func (d *Driver) HandleJoinLobby(user ids.UserId, req JoinLobbyRequest) (LobbyJoin, bool, string) {
	info, ok := d.cfg.Users.Get(user)
	if !ok || info.State.Kind != hostcache.Idle {
		return LobbyJoin{}, false, "user must be idle to join a lobby"
	}

	if err := d.cfg.Lobbies.AddMember(req.LobbyID, user, hostcache.LobbyMember{Color: req.Color}, req.Password); err != nil {
		return LobbyJoin{}, false, err.Error()
	}

	l, _ := d.cfg.Lobbies.Get(req.LobbyID)
	_ = d.cfg.Users.UpdateState(user, hostcache.UserState{Kind: hostcache.InLobby, LobbyID: req.LobbyID})

	for member := range l.Members {
		if member != user {
			d.cfg.Users2Hub.SendToUser(member, LobbyState{Lobby: *l})
		}
	}
	return LobbyJoin{Lobby: *l}, true, ""
}

// HandleLeaveLobby removes user from the lobby it currently belongs to
// (InLobby or InPendingLobby), destroying the lobby if the owner left or
// it is now empty.
func (d *Driver) HandleLeaveLobby(user ids.UserId, req LeaveLobbyRequest) (ok bool, reason string) {
	info, found := d.cfg.Users.Get(user)
	if !found || (info.State.Kind != hostcache.InLobby && info.State.Kind != hostcache.InPendingLobby) || info.State.LobbyID != req.LobbyID {
		return false, "user is not a member of that lobby"
	}

	if info.State.Kind == hostcache.InPendingLobby {
		if _, found := d.cfg.Pending.Get(req.LobbyID); !found {
			return false, "lobby not found"
		}
		d.HandleNackPendingLobby(NackPendingLobby{LobbyID: req.LobbyID})
		return true, ""
	}

	l, found := d.cfg.Lobbies.Get(req.LobbyID)
	if !found {
		return false, "lobby not found"
	}
	ownerLeaving := l.OwnerID == user

	isEmpty, removed := d.cfg.Lobbies.RemoveMember(req.LobbyID, user)
	if !removed {
		return false, "user not present in lobby"
	}
	_ = d.cfg.Users.UpdateState(user, hostcache.UserState{Kind: hostcache.Idle})

	if ownerLeaving || isEmpty {
		d.cfg.Lobbies.Remove(req.LobbyID)
		for member := range l.Members {
			d.cfg.Users2Hub.SendToUser(member, LobbyLeave{LobbyID: req.LobbyID})
			_ = d.cfg.Users.UpdateState(member, hostcache.UserState{Kind: hostcache.Idle})
		}
		return true, ""
	}

	for member := range l.Members {
		d.cfg.Users2Hub.SendToUser(member, LobbyState{Lobby: *l})
	}
	return true, ""
}

// HandleLaunchLobbyGame moves a lobby from LobbiesCache to
// PendingLobbiesCache and requests an ack from every member, requiring
// the requester to own the lobby and the checker to allow launch.
func (d *Driver) HandleLaunchLobbyGame(user ids.UserId, req LaunchLobbyGameRequest, now time.Time) (ok bool, reason string) {
	l, found := d.cfg.Lobbies.Get(req.LobbyID)
	if !found {
		return false, "lobby not found"
	}
	if l.OwnerID != user {
		return false, "only the owner may launch"
	}
	info, found := d.cfg.Users.Get(user)
	if !found || info.State.Kind != hostcache.InLobby || info.State.LobbyID != req.LobbyID {
		return false, "owner is not currently in that lobby"
	}
	if !d.cfg.Lobbies.CanLaunch(req.LobbyID) {
		return false, "lobby is not launchable"
	}

	d.cfg.Lobbies.Remove(req.LobbyID)
	pending, err := d.cfg.Pending.Insert(l, now)
	if err != nil {
		return false, err.Error()
	}

	for member := range pending.Members {
		_ = d.cfg.Users.UpdateState(member, hostcache.UserState{Kind: hostcache.InPendingLobby, LobbyID: req.LobbyID})
		d.cfg.Users2Hub.SendToUser(member, PendingLobbyAckRequest{LobbyID: req.LobbyID})
	}
	return true, ""
}

// HandleGetConnectToken mints a fresh connect token for user, requiring
// the user to currently be InGame.
func (d *Driver) HandleGetConnectToken(user ids.UserId, req GetConnectTokenRequest, now time.Time) (ConnectTokenResponse, bool, string) {
	info, found := d.cfg.Users.Get(user)
	if !found || info.State.Kind != hostcache.InGame || info.State.GameID != req.GameID {
		return ConnectTokenResponse{}, false, "user is not in that game"
	}
	game, found := d.cfg.Ongoing.Get(req.GameID)
	if !found {
		return ConnectTokenResponse{}, false, "game not found"
	}

	var clientID ids.ClientId
	for _, si := range game.StartInfos {
		if si.UserID == user {
			clientID = si.ClientID
		}
	}

	token, err := d.cfg.Minter.Mint(req.GameID, user, clientID, now)
	if err != nil {
		return ConnectTokenResponse{}, false, err.Error()
	}
	return ConnectTokenResponse{GameID: req.GameID, Token: token}, true, ""
}

// HandleAckPendingLobby records user's ack against the pending lobby and,
// once all members have acked, dispatches the game to a hub.
func (d *Driver) HandleAckPendingLobby(user ids.UserId, msg AckPendingLobby, newGameID func() ids.GameId) {
	if _, err := d.cfg.Pending.Ack(msg.LobbyID, user); err != nil {
		return
	}
	pending, ok := d.cfg.Pending.ExtractIfAllAcked(msg.LobbyID)
	if !ok {
		return
	}
	d.dispatchToHub(pending, newGameID)
}

// HandleNackPendingLobby destroys the pending lobby and returns every
// member to Idle.
func (d *Driver) HandleNackPendingLobby(msg NackPendingLobby) {
	pending, ok := d.cfg.Pending.Nack(msg.LobbyID)
	if !ok {
		return
	}
	for member := range pending.Members {
		d.cfg.Users2Hub.SendToUser(member, PendingLobbyAckFail{LobbyID: msg.LobbyID, Reason: "a member declined"})
		_ = d.cfg.Users.UpdateState(member, hostcache.UserState{Kind: hostcache.Idle})
	}
}

// dispatchToHub picks the highest-nonzero-capacity hub and hands the game
// off to it, or fails every member back to Idle if none is available
// (spec.md §4.14 "Dispatch on all-ack").
func (d *Driver) dispatchToHub(pending *hostcache.PendingLobby, newGameID func() ids.GameId) {
	hubID, _, ok := d.cfg.Hubs.HighestNonzeroCapacityHub()
	if !ok {
		for member := range pending.Members {
			d.cfg.Users2Hub.SendToUser(member, PendingLobbyAckFail{LobbyID: pending.ID, Reason: "no hub capacity available"})
			_ = d.cfg.Users.UpdateState(member, hostcache.UserState{Kind: hostcache.Idle})
		}
		return
	}

	gameID := newGameID()
	members := make([]hubcache.GameMember, 0, len(pending.Members))
	for user := range pending.Members {
		members = append(members, hubcache.GameMember{UserID: user})
	}
	req := hubcache.GameStartRequest{GameID: gameID, Members: members}

	if err := d.cfg.Hubs.AddPendingGame(hubID, gameID, req); err != nil {
		d.log().Error("hostproto: failed to reserve game on hub", "hub", hubID, "game", gameID, "err", err)
		for member := range pending.Members {
			d.cfg.Users2Hub.SendToUser(member, PendingLobbyAckFail{LobbyID: pending.ID, Reason: "no hub capacity available"})
			_ = d.cfg.Users.UpdateState(member, hostcache.UserState{Kind: hostcache.Idle})
		}
		return
	}
	d.cfg.ToHub.SendToHub(hubID, hubproto.StartGame{Request: req})
}

// HandleHubGameStart installs an ongoing game once a hub confirms it
// started, mints a connect token for each participant, fans out
// GameStart{connect_token, start_info} to them, and sets them InGame
// (spec.md §4.14, End-to-End Scenario §8 step 1). Requires the pending
// game to exist on hub and the confirmed request to match what the host
// cached when it dispatched StartGame; a hub reporting an unknown or
// mismatched game is rejected outright rather than trusted.
func (d *Driver) HandleHubGameStart(hub ids.HubId, msg hubproto.GameStart, now time.Time) {
	cached, ok := d.cfg.Hubs.GetPendingRequest(hub, msg.GameID)
	if !ok || !reflect.DeepEqual(cached, msg.Request) {
		d.log().Warn("hostproto: rejecting GameStart for unknown or mismatched pending game", "hub", hub, "game", msg.GameID)
		return
	}
	if err := d.cfg.Hubs.UpgradePendingGame(hub, msg.GameID); err != nil {
		d.log().Warn("hostproto: rejecting GameStart, hub upgrade failed", "hub", hub, "game", msg.GameID, "err", err)
		return
	}

	startInfos := make([]hostcache.StartInfo, 0, len(msg.StartInfos))
	users := make([]ids.UserId, 0, len(msg.StartInfos))
	for i, si := range msg.StartInfos {
		startInfos = append(startInfos, hostcache.StartInfo{
			UserID:          si.UserID,
			ClientID:        si.ClientID,
			OpaqueStartData: si.OpaqueStartData,
		})
		users = append(users, si.UserID)

		var connectInfo []byte
		if i < len(msg.ConnectMetas) {
			connectInfo = msg.ConnectMetas[i].Opaque
		}
		token, err := d.cfg.Minter.Mint(msg.GameID, si.UserID, si.ClientID, now)
		if err != nil {
			d.log().Error("hostproto: failed to mint connect token", "user", si.UserID, "game", msg.GameID, "err", err)
			continue
		}
		d.cfg.Users2Hub.SendToUser(si.UserID, GameStart{
			GameID:          msg.GameID,
			Token:           token,
			ClientID:        si.ClientID,
			OpaqueStartData: si.OpaqueStartData,
			ConnectInfo:     connectInfo,
		})
	}

	game := &hostcache.OngoingGame{GameID: msg.GameID, HubID: hub, StartInfos: startInfos}
	_ = d.cfg.Ongoing.Insert(game, now)
	d.cfg.Users.SetUserStates(users, hostcache.UserState{Kind: hostcache.InGame, GameID: msg.GameID})
}

// HandleHubGameOver forwards the opaque result to every participant and
// retires the ongoing game.
func (d *Driver) HandleHubGameOver(msg hubproto.GameOver) {
	game, ok := d.cfg.Ongoing.Remove(msg.GameID)
	if !ok {
		return
	}
	for _, si := range game.StartInfos {
		d.cfg.Users2Hub.SendToUser(si.UserID, msg)
		_ = d.cfg.Users.UpdateState(si.UserID, hostcache.UserState{Kind: hostcache.Idle})
	}
	d.cfg.Hubs.RemoveGame(game.HubID, msg.GameID)
}

// HandleHubAbort retires a game that died before or during play and
// returns its users to Idle.
func (d *Driver) HandleHubAbort(hub ids.HubId, msg hubproto.HubAbort) {
	if req, ok := d.cfg.Hubs.GetPendingRequest(hub, msg.GameID); ok {
		for _, m := range req.Members {
			_ = d.cfg.Users.UpdateState(m.UserID, hostcache.UserState{Kind: hostcache.Idle})
		}
	}
	d.cfg.Hubs.RemovePendingGame(hub, msg.GameID)
	game, ok := d.cfg.Ongoing.Remove(msg.GameID)
	if !ok {
		return
	}
	for _, si := range game.StartInfos {
		_ = d.cfg.Users.UpdateState(si.UserID, hostcache.UserState{Kind: hostcache.Idle})
	}
	d.cfg.Hubs.RemoveGame(hub, msg.GameID)
}

// HandleHubCapacity records a hub's self-reported capacity.
func (d *Driver) HandleHubCapacity(hub ids.HubId, msg hubproto.Capacity) {
	_ = d.cfg.Hubs.SetHubCapacity(hub, uint16(msg.CurrentCapacity))
}

// HandleUserConnected registers a newly connected user as Idle. The
// Memory connection type is silently downgraded to Native at this entry
// point per spec.md §9: an in-memory transport cannot reach a remote
// host, and the source's current behavior is kept rather than rejecting
// the connection outright.
func (d *Driver) HandleUserConnected(user ids.UserId, conn ids.ConnectionType) {
	normalized, downgraded := conn.Normalize()
	if downgraded {
		d.log().Debug("hostproto: downgrading Memory connection to Native", "user", user)
	}
	d.cfg.Users.Insert(user, normalized)
}

// HandleUserDisconnected applies spec.md §4.14's disconnect cleanup: a
// lobby member is removed exactly as if they had called LeaveLobby, a
// pending-lobby member is treated as an implicit nack, and a user InGame
// keeps their OngoingGame entry intact so GetConnectToken can reconnect
// them later.
func (d *Driver) HandleUserDisconnected(user ids.UserId) {
	info, ok := d.cfg.Users.Get(user)
	if !ok {
		return
	}

	switch info.State.Kind {
	case hostcache.InLobby:
		d.HandleLeaveLobby(user, LeaveLobbyRequest{LobbyID: info.State.LobbyID})
	case hostcache.InPendingLobby:
		d.HandleNackPendingLobby(NackPendingLobby{LobbyID: info.State.LobbyID})
	case hostcache.InGame:
		// Leave the OngoingGame entry alone; the user may reconnect and
		// call GetConnectToken.
	}

	d.cfg.Users.Remove(user)
}

// HandleHubConnected installs a newly connected hub, restoring it from the
// disconnect buffer if it reconnected within the TTL (spec.md §4.14).
func (d *Driver) HandleHubConnected(hub ids.HubId, initialCapacity uint16) {
	if d.cfg.HubBuffer != nil && d.cfg.HubBuffer.Restore(hub) {
		// Already registered in GameHubsCache with its games intact;
		// only the capacity may need updating.
		_ = d.cfg.Hubs.SetHubCapacity(hub, initialCapacity)
		return
	}
	_ = d.cfg.Hubs.InsertHub(hub, initialCapacity)
}

// HandleHubDisconnected starts the two-phase hub disconnect of spec.md
// §4.14: the hub's record (capacity, pending/running games) is left
// intact in GameHubsCache so a transient blip does not disrupt in-flight
// games; only the TTL sweep (SweepDisconnectedHubs) actually tears it
// down.
func (d *Driver) HandleHubDisconnected(hub ids.HubId, now time.Time) {
	if d.cfg.HubBuffer == nil {
		return
	}
	d.cfg.HubBuffer.Insert(hub, now)
}

// SweepDisconnectedHubs is called once per host tick. For every hub whose
// disconnect-buffer TTL has expired, it unregisters the hub and aborts
// every game it held, notifying participants with a hubproto.HubAbort and
// returning them to Idle.
func (d *Driver) SweepDisconnectedHubs(now time.Time) {
	if d.cfg.HubBuffer == nil {
		return
	}
	for _, hub := range d.cfg.HubBuffer.DrainExpired(now) {
		record, ok := d.cfg.Hubs.RemoveHub(hub)
		if !ok {
			continue
		}
		for game := range record.RunningGames {
			d.abortGame(hub, game)
		}
		for game, req := range record.PendingGames {
			for _, m := range req.Members {
				d.cfg.Users2Hub.SendToUser(m.UserID, hubproto.HubAbort{GameID: game, Reason: "hub disconnected"})
				_ = d.cfg.Users.UpdateState(m.UserID, hostcache.UserState{Kind: hostcache.Idle})
			}
		}
	}
}

// SweepExpired runs every per-tick TTL sweep the host owns: expired
// pending lobbies, ongoing games past their cache lifetime, and
// zombie hubs past their disconnect-buffer TTL (spec.md §4.9, §4.10,
// §4.14). It is grounded in the original_source supplement noted in
// SPEC_FULL.md §4: the host tick loop sweeps these per tick rather than
// each owning a private timer goroutine.
func (d *Driver) SweepExpired(now time.Time) {
	for _, pending := range d.cfg.Pending.DrainExpired(now) {
		for member := range pending.Members {
			d.cfg.Users2Hub.SendToUser(member, PendingLobbyAckFail{LobbyID: pending.ID, Reason: "ack timed out"})
			_ = d.cfg.Users.UpdateState(member, hostcache.UserState{Kind: hostcache.Idle})
		}
	}

	for _, game := range d.cfg.Ongoing.DrainExpired(now) {
		d.cfg.ToHub.SendToHub(game.HubID, hubproto.HostAbort{GameID: game.GameID})
		d.cfg.Hubs.RemoveGame(game.HubID, game.GameID)
		for _, si := range game.StartInfos {
			_ = d.cfg.Users.UpdateState(si.UserID, hostcache.UserState{Kind: hostcache.Idle})
		}
	}

	d.SweepDisconnectedHubs(now)
}

// abortGame retires a game lost to a zombie hub, notifying every
// participant of the abort and returning them to Idle.
func (d *Driver) abortGame(hub ids.HubId, game ids.GameId) {
	og, ok := d.cfg.Ongoing.Remove(game)
	if !ok {
		return
	}
	for _, si := range og.StartInfos {
		d.cfg.Users2Hub.SendToUser(si.UserID, hubproto.HubAbort{GameID: game, Reason: "hub disconnected"})
		_ = d.cfg.Users.UpdateState(si.UserID, hostcache.UserState{Kind: hostcache.Idle})
	}
}

func (d *Driver) log() *slog.Logger {
	if d.cfg.Logger != nil {
		return d.cfg.Logger
	}
	return slog.Default()
}
