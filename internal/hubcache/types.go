// Package hubcache implements the hub server's two caches and capacity
// tracker (spec.md §4.13): pending games awaiting a launch pack, running
// games under supervision, and a current-capacity tracker that notifies
// the host only on change or reconnect.
package hubcache

import (
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/supervisor"
)

// GameStartRequest is what the host sends a hub to launch a new game.
type GameStartRequest struct {
	GameID         ids.GameId
	OpaqueLaunchArgs []byte
	Members        []GameMember
}

// GameMember is one participant the host wants connected to the launched
// game instance.
type GameMember struct {
	UserID   ids.UserId
	ClientID ids.ClientId
}

// GameLaunchPack is produced asynchronously by a domain-supplied source in
// response to a GameStartRequest (spec.md §4.13). ListenAddr and Members
// are the connect material the hub needs to report GameStart to host once
// the instance is spawned (spec.md §4.14 "GameStart{connect_token,
// start_info}" fan-out); OpaqueLaunchBytes is passed through to the
// instance binary untouched (spec.md §6, the -G flag).
type GameLaunchPack struct {
	GameID            ids.GameId
	OpaqueLaunchBytes []byte
	ListenAddr        string
	Members           []GameMember
}

// GameLaunchPackSource is the domain hook that turns a GameStartRequest
// into a GameLaunchPack, e.g. by loading map data or matchmaking seeds.
type GameLaunchPackSource interface {
	RequestLaunchPack(req GameStartRequest) (GameLaunchPack, error)
}

// PendingGame is a GameStartRequest waiting on its launch pack.
type PendingGame struct {
	Request GameStartRequest
	Born    time.Time
}

// InstanceCommand and InstanceReport mirror the generic supervisor's type
// parameters for a game instance child process (spec.md §4.7, §6).
type InstanceCommand struct {
	Abort bool `json:"abort,omitempty"`
}

type InstanceReport struct {
	GameOver *GameOverReport `json:"game_over,omitempty"`
	Aborted  bool            `json:"aborted,omitempty"`
}

// GameOverReport carries the opaque simulation result verbatim to host
// then to every participating user (spec.md §3).
type GameOverReport struct {
	OpaqueBytes []byte `json:"opaque_bytes"`
}

// RunningGame is a launched game instance under supervision. Result is
// filled in by the report callback passed to supervisor.Spawn the moment
// a terminal report arrives, before Wait unblocks — safe to read once a
// Completion for this GameID has been observed.
type RunningGame struct {
	GameID     ids.GameId
	Supervisor *supervisor.Supervisor[InstanceCommand, InstanceReport]
	Result     *GameOverReport
}
