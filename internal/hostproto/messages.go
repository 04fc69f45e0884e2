// Package hostproto implements the host server's user-facing and
// hub-facing protocol driver (spec.md §4.14): the request/message
// handlers that sit between a transport.Conn and the host's caches
// (internal/hostcache).
package hostproto

import (
	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/hostcache"
	"github.com/arenahost/backend/internal/ids"
)

// HostUserConnectMsg is the first payload a user connection must send,
// per spec.md §6: "Opens with a HostUserConnectMsg{connection_type}
// payload." The host mints a UserId and registers the connection only
// after observing this.
type HostUserConnectMsg struct {
	Connection ids.ConnectionType
}

func (HostUserConnectMsg) ChannelKind() codec.ChannelKind { return codec.Ordered }

// HostUserConnectAck replies with the UserId the host minted for this
// connection, so the client can address future requests and correlate
// reconnects.
type HostUserConnectAck struct {
	UserID ids.UserId
}

func (HostUserConnectAck) ChannelKind() codec.ChannelKind { return codec.Ordered }

// HostHubConnectMsg is the first payload a hub connection must send,
// carrying its advertised capacity (spec.md §6 GameHubServerConfig
// initial_max_capacity).
type HostHubConnectMsg struct {
	HubID           ids.HubId
	InitialCapacity uint16
}

func (HostHubConnectMsg) ChannelKind() codec.ChannelKind { return codec.Ordered }

// --- User -> Host requests ---

type LobbySearchRequest struct {
	Req hostcache.LobbySearchRequest
}

func (LobbySearchRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

type LobbySearchResponse struct {
	Result hostcache.LobbySearchResult
}

func (LobbySearchResponse) ChannelKind() codec.ChannelKind { return codec.Ordered }

type MakeLobbyRequest struct {
	Color      ids.LobbyMemberColor
	Password   string
	CustomData []byte
}

func (MakeLobbyRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

type JoinLobbyRequest struct {
	LobbyID  ids.LobbyId
	Color    ids.LobbyMemberColor
	Password string
}

func (JoinLobbyRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

// LobbyJoin is the success reply to MakeLobby/JoinLobby.
type LobbyJoin struct {
	Lobby hostcache.Lobby
}

func (LobbyJoin) ChannelKind() codec.ChannelKind { return codec.Ordered }

type LeaveLobbyRequest struct {
	LobbyID ids.LobbyId
}

func (LeaveLobbyRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

type LaunchLobbyGameRequest struct {
	LobbyID ids.LobbyId
}

func (LaunchLobbyGameRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

type GetConnectTokenRequest struct {
	GameID ids.GameId
}

func (GetConnectTokenRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

type ConnectTokenResponse struct {
	GameID ids.GameId
	Token  string
}

func (ConnectTokenResponse) ChannelKind() codec.ChannelKind { return codec.Ordered }

// Ack is the generic positive reply to requests with no richer payload
// (LeaveLobby, LaunchLobbyGame).
type Ack struct{}

func (Ack) ChannelKind() codec.ChannelKind { return codec.Ordered }

// Reject is the generic negative reply, carrying a human-readable reason.
type Reject struct {
	Reason string
}

func (Reject) ChannelKind() codec.ChannelKind { return codec.Ordered }

// --- User -> Host one-way messages ---

type AckPendingLobby struct {
	LobbyID ids.LobbyId
}

func (AckPendingLobby) ChannelKind() codec.ChannelKind { return codec.Ordered }

type NackPendingLobby struct {
	LobbyID ids.LobbyId
}

func (NackPendingLobby) ChannelKind() codec.ChannelKind { return codec.Ordered }

// --- Host -> User broadcasts ---

type LobbyState struct {
	Lobby hostcache.Lobby
}

func (LobbyState) ChannelKind() codec.ChannelKind { return codec.Ordered }

type LobbyLeave struct {
	LobbyID ids.LobbyId
}

func (LobbyLeave) ChannelKind() codec.ChannelKind { return codec.Ordered }

type PendingLobbyAckRequest struct {
	LobbyID ids.LobbyId
}

func (PendingLobbyAckRequest) ChannelKind() codec.ChannelKind { return codec.Ordered }

type PendingLobbyAckFail struct {
	LobbyID ids.LobbyId
	Reason  string
}

func (PendingLobbyAckFail) ChannelKind() codec.ChannelKind { return codec.Ordered }

// GameStart notifies one participant that their game has started, per
// spec.md §4.14's "fan out GameStart{connect_token, start_info} to each
// participating user and set them to InGame." Token is freshly minted by
// Minter for this user/game/client; ConnectInfo is the hub-supplied opaque
// connect material (address, transport metadata) the client needs to reach
// the launched game instance.
type GameStart struct {
	GameID          ids.GameId
	Token           string
	ClientID        ids.ClientId
	OpaqueStartData []byte
	ConnectInfo     []byte
}

func (GameStart) ChannelKind() codec.ChannelKind { return codec.Ordered }

func registerAll() {
	for _, v := range []codec.Tagged{
		HostUserConnectMsg{}, HostUserConnectAck{}, HostHubConnectMsg{},
		LobbySearchRequest{}, LobbySearchResponse{}, MakeLobbyRequest{}, JoinLobbyRequest{},
		LobbyJoin{}, LeaveLobbyRequest{}, LaunchLobbyGameRequest{}, GetConnectTokenRequest{},
		ConnectTokenResponse{}, Ack{}, Reject{}, AckPendingLobby{}, NackPendingLobby{},
		LobbyState{}, LobbyLeave{}, PendingLobbyAckRequest{}, PendingLobbyAckFail{}, GameStart{},
	} {
		codec.Register(v)
	}
}

func init() { registerAll() }
