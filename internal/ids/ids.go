// Package ids defines the opaque identifier types shared across every tier
// of the backend: Tick, ClientId, UserId, GameId, LobbyId and HubId.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// Tick is a monotonic count of elapsed simulation steps within one game.
// It wraps a uint32 the way a real tick counter would; advancing past
// MaxUint32 is a programming error (a game running that long is not a
// realistic scenario) so Tick.Next panics rather than wrapping silently.
type Tick uint32

// Next returns the next tick, panicking on overflow.
func (t Tick) Next() Tick {
	if t == Tick(^uint32(0)) {
		panic("ids: tick counter overflowed")
	}
	return t + 1
}

// ClientId identifies a participant within a single game.
type ClientId uint64

// ServerId is the reserved ClientId denoting the authoritative server
// itself, used as the sender of framework broadcasts.
const ServerId ClientId = 0

// GameId and LobbyId are process-lifetime-unique 64-bit identifiers minted
// by the host server.
type GameId uint64
type LobbyId uint64

// UserId identifies a user across the host server's lifetime. It is backed
// by a uuid.UUID (128 bits) and prints in the standard uuid form via
// String. As a defined type it does not inherit uuid.UUID's text
// marshalling, so encoding/json renders it as an array of 16 numbers.
type UserId uuid.UUID

// NewUserId mints a fresh, random UserId.
func NewUserId() UserId {
	return UserId(uuid.New())
}

func (u UserId) String() string {
	return uuid.UUID(u).String()
}

// HubId identifies a hub server, also 128 bits.
type HubId uuid.UUID

// NewHubId mints a fresh, random HubId.
func NewHubId() HubId {
	return HubId(uuid.New())
}

func (h HubId) String() string {
	return uuid.UUID(h).String()
}

// LobbyMemberColor namespaces the "role" of a member inside a lobby. The
// encoding (player vs. watcher, team index, ...) is entirely up to the
// domain-supplied LobbyChecker; the core only stores and echoes it back.
type LobbyMemberColor uint64

// ConnectionType is the transport the client used to reach the host.
type ConnectionType int

const (
	ConnectionMemory ConnectionType = iota
	ConnectionNative
	ConnectionWasmWebTransport
	ConnectionWasmWebSocket
)

func (c ConnectionType) String() string {
	switch c {
	case ConnectionMemory:
		return "memory"
	case ConnectionNative:
		return "native"
	case ConnectionWasmWebTransport:
		return "wasm_webtransport"
	case ConnectionWasmWebSocket:
		return "wasm_websocket"
	default:
		return fmt.Sprintf("connection_type(%d)", int(c))
	}
}

// Normalize applies the Memory→Native downgrade documented in spec.md §9:
// an in-memory transport cannot reach a remote host, so it collapses into
// Native the moment a user enters the users cache. The bool reports
// whether a downgrade occurred, so callers can log it.
func (c ConnectionType) Normalize() (ConnectionType, bool) {
	if c == ConnectionMemory {
		return ConnectionNative, true
	}
	return c, false
}
