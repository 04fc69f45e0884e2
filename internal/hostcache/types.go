// Package hostcache implements the host server's three caches and their
// supporting indices: lobbies (spec.md §4.8), pending lobbies (§4.9),
// ongoing games (§4.10), users (§4.11) and game hubs (§4.12). Each cache
// exclusively owns its entities; cross-cache references are by id only.
package hostcache

import (
	"time"

	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/ids"
)

// LobbyMember is one member's connection and role within a lobby.
type LobbyMember struct {
	Connection ids.ConnectionType
	Color      ids.LobbyMemberColor
}

// Lobby is a pre-game room. OwnerID is never itself a key of Members until
// the owner explicitly joins (spec.md §3).
type Lobby struct {
	ID         ids.LobbyId
	OwnerID    ids.UserId
	Password   string
	CustomData []byte
	Members    map[ids.UserId]LobbyMember
}

// LobbyChecker is the domain-supplied policy hook for lobby validation,
// membership, and launch eligibility (spec.md §4.8, §9).
type LobbyChecker interface {
	CheckLobby(l *Lobby) error
	AllowNewMember(l *Lobby, user ids.UserId, member LobbyMember, password string) error
	CanLaunch(l *Lobby) bool
}

// PendingLobby is a Lobby frozen at the moment of launch, awaiting
// acknowledgement from every member.
type PendingLobby struct {
	Lobby
	Born  time.Time
	Acked map[ids.UserId]struct{}
}

// AllAcked reports whether every member of the underlying lobby has acked.
func (p *PendingLobby) AllAcked() bool {
	for user := range p.Members {
		if _, ok := p.Acked[user]; !ok {
			return false
		}
	}
	return true
}

// StartInfo carries per-client connection material for one participant of
// an ongoing game.
type StartInfo struct {
	UserID         ids.UserId
	ClientID       ids.ClientId
	OpaqueStartData []byte
}

// OngoingGame is a game currently running on a hub.
type OngoingGame struct {
	GameID     ids.GameId
	HubID      ids.HubId
	StartInfos []StartInfo
}

// UserState is the connection state of one user, mutually exclusive.
type UserState struct {
	Kind    UserStateKind
	LobbyID ids.LobbyId // valid for InLobby / InPendingLobby
	GameID  ids.GameId  // valid for InGame
}

type UserStateKind int

const (
	Idle UserStateKind = iota
	InLobby
	InPendingLobby
	InGame
)

func (k UserStateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case InLobby:
		return "in_lobby"
	case InPendingLobby:
		return "in_pending_lobby"
	case InGame:
		return "in_game"
	default:
		return "unknown"
	}
}

// UserInfo is one user's connection type and current state.
type UserInfo struct {
	Connection ids.ConnectionType
	State      UserState
}

// HubRecord is one hub's advertised capacity and the games it holds.
// PendingGames caches the GameStartRequest the host actually dispatched
// for each reservation, so a hub's later GameStart report can be checked
// against it (spec.md §4.14 precondition "request == cached request").
type HubRecord struct {
	Capacity     uint16
	PendingGames map[ids.GameId]hubcache.GameStartRequest
	RunningGames map[ids.GameId]struct{}
}

// EffectiveCapacity is Capacity minus the games currently occupying it.
func (h *HubRecord) EffectiveCapacity() int {
	return int(h.Capacity) - len(h.PendingGames) - len(h.RunningGames)
}
