// Package connectinfo defines the two small JSON payloads threaded through
// the launcher CLI surface of spec.md §6: "Client instance: -T <json
// ServerConnectToken> -S <json GameStartInfo>". Both are assembled by
// whatever launches a client instance (a user-facing app, a test harness)
// from a GetConnectTokenRequest response and a GameStart fan-out; neither
// type is transmitted over the wire itself.
package connectinfo

import "github.com/arenahost/backend/internal/ids"

// ServerConnectToken is the -T payload: the opaque bearer token minted by
// internal/tokens.Minter, scoped to one game.
type ServerConnectToken struct {
	GameID ids.GameId
	Token  string
}

// GameStartInfo is the -S payload: the connect material a client needs to
// reach its game instance and identify itself once there.
type GameStartInfo struct {
	ListenAddr      string
	ClientID        ids.ClientId
	OpaqueStartData []byte
}
