// Package hubproto implements the host<->hub message protocol of spec.md
// §4.14: host-> hub StartGame/Abort, and hub->host Capacity/GameStart/
// GameOver/Abort. Unlike hostproto's user-facing requests, every message
// here is one-way (spec.md §6: "Host<->Hub transport: bidirectional
// message-only").
package hubproto

import (
	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/ids"
)

// --- Host -> Hub ---

type StartGame struct {
	Request hubcache.GameStartRequest
}

func (StartGame) ChannelKind() codec.ChannelKind { return codec.Ordered }

// HostAbort tells a hub to abort a game it is running or has pending.
type HostAbort struct {
	GameID ids.GameId
}

func (HostAbort) ChannelKind() codec.ChannelKind { return codec.Ordered }

// --- Hub -> Host ---

type Capacity struct {
	CurrentCapacity int
}

func (Capacity) ChannelKind() codec.ChannelKind { return codec.Ordered }

// ConnectMeta is transport-dependent bytes a client needs to reach a
// launched game instance: protocol id, server cert hash, socket address.
type ConnectMeta struct {
	GameID ids.GameId
	Opaque []byte
}

type StartInfo struct {
	UserID          ids.UserId
	ClientID        ids.ClientId
	OpaqueStartData []byte
}

// GameStart reports a successful launch back to host. Request is the exact
// GameStartRequest the hub is confirming, letting host verify it matches
// what it cached when it reserved this game id on this hub (spec.md §4.14
// precondition "request == cached request") before trusting the rest of
// the report.
type GameStart struct {
	GameID       ids.GameId
	Request      hubcache.GameStartRequest
	ConnectMetas []ConnectMeta
	StartInfos   []StartInfo
}

func (GameStart) ChannelKind() codec.ChannelKind { return codec.Ordered }

type GameOver struct {
	GameID      ids.GameId
	OpaqueBytes []byte
}

func (GameOver) ChannelKind() codec.ChannelKind { return codec.Ordered }

// HubAbort tells the host a game died on the hub's side (launch-pack
// timeout, instance crash, or explicit abort acknowledged).
type HubAbort struct {
	GameID ids.GameId
	Reason string
}

func (HubAbort) ChannelKind() codec.ChannelKind { return codec.Ordered }

func registerAll() {
	for _, v := range []codec.Tagged{
		StartGame{}, HostAbort{}, Capacity{}, GameStart{}, GameOver{}, HubAbort{},
	} {
		codec.Register(v)
	}
}

func init() { registerAll() }
