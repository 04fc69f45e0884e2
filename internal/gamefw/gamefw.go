// Package gamefw implements the server-side per-game tick loop of
// spec.md §4.5: the Init→Game→End state machine, its inbound packet
// router, and the outbound message queue with channel-kind tagging.
//
// The shape follows the teacher's internal/game.Room: a struct guarding a
// client map, an explicit tick counter, and a single driving loop — except
// here the loop is an explicit Tick() method the caller invokes once per
// frame (spec.md §5's "tick boundary" cooperative model) instead of a
// goroutine driven by time.Ticker.
package gamefw

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/readiness"
)

// State is a node of the game framework's state machine.
type State int

const (
	Init State = iota
	Game
	End
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Game:
		return "game"
	case End:
		return "end"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config configures tick timing and the Init/End state budgets.
type Config struct {
	TicksPerSec  uint32
	MaxInitTicks uint32
	MaxEndTicks  uint32
}

func (c Config) validate() error {
	if c.TicksPerSec < 1 {
		return errors.New("gamefw: TicksPerSec must be >= 1")
	}
	if c.MaxInitTicks < 1 {
		return errors.New("gamefw: MaxInitTicks must be >= 1")
	}
	return nil
}

// GameOverReport is the opaque payload produced by set_game_end, forwarded
// verbatim through the hub and host to every participant.
type GameOverReport []byte

// Visibility selects which clients an outgoing message should reach.
type Visibility struct {
	kind     visKind
	clientID ids.ClientId
}

type visKind int

const (
	visGlobal visKind = iota
	visClient
	visAllExcept
)

func VisGlobal() Visibility                     { return Visibility{kind: visGlobal} }
func VisClient(id ids.ClientId) Visibility       { return Visibility{kind: visClient, clientID: id} }
func VisAllExcept(id ids.ClientId) Visibility    { return Visibility{kind: visAllExcept, clientID: id} }

// Includes reports whether a message sent with this Visibility should
// reach id. Exported so transport-layer code outside this package can
// route OutboundPacket values without reimplementing the visibility rules.
func (v Visibility) Includes(id ids.ClientId) bool {
	return v.includes(id)
}

func (v Visibility) includes(id ids.ClientId) bool {
	switch v.kind {
	case visGlobal:
		return true
	case visClient:
		return id == v.clientID
	case visAllExcept:
		return id != v.clientID
	default:
		return false
	}
}

// InboundPacket is a raw packet drained from one client's ingress queue.
type InboundPacket struct {
	From       ids.ClientId
	ReceivedOn codec.ChannelKind
	Frame      []byte
}

// OutboundPacket is a framed, addressed message ready for the transport
// layer to deliver.
type OutboundPacket struct {
	Visibility Visibility
	Channel    codec.ChannelKind
	Frame      []byte
}

// RequestHandler processes one successfully decoded inbound message.
// Unknown clients and malformed/mismatched-channel packets never reach it
// (they are dropped by the framework, per spec.md §4.5 failure modes).
type RequestHandler func(from ids.ClientId, layer codec.Layer, msg codec.Tagged)

// GameFw drives one game's server-side tick loop.
type GameFw struct {
	cfg Config
	log *slog.Logger

	state      State
	tick       ids.Tick
	preEndTick ids.Tick
	endFlagSet bool
	endReport  GameOverReport

	clients    map[ids.ClientId]struct{}
	readiness  *readiness.Aggregator

	inbound  []InboundPacket
	outbound []OutboundPacket

	handler RequestHandler

	// OnEnter/OnExit fire when the state machine transitions. Either may
	// be nil.
	OnEnter func(State)
	OnExit  func(State)
}

// New builds a GameFw. Per spec.md §4.5, an empty client set or invalid
// config is a startup precondition failure — callers should treat a
// non-nil error as fatal (log.Fatal / panic at the process boundary, not a
// runtime condition to recover from).
func New(cfg Config, clients []ids.ClientId, handler RequestHandler, logger *slog.Logger) (*GameFw, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, errors.New("gamefw: client set must be nonempty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	set := make(map[ids.ClientId]struct{}, len(clients))
	ids64 := make([]uint64, 0, len(clients))
	for _, c := range clients {
		set[c] = struct{}{}
		ids64 = append(ids64, uint64(c))
	}

	return &GameFw{
		cfg:       cfg,
		log:       logger,
		state:     Init,
		clients:   set,
		readiness: readiness.NewAggregator(ids64),
		handler:   handler,
	}, nil
}

// State returns the current state machine node.
func (g *GameFw) State() State { return g.state }

// CurrentTick returns the current tick counter.
func (g *GameFw) CurrentTick() ids.Tick { return g.tick }

// Readiness exposes the readiness aggregator so domain code (or the
// transport layer) can record per-client init progress.
func (g *GameFw) Readiness() *readiness.Aggregator { return g.readiness }

// SetGameEnd idempotently requests the End transition, carrying the
// game-over report. Subsequent calls are ignored.
func (g *GameFw) SetGameEnd(report GameOverReport) {
	if g.endFlagSet {
		return
	}
	g.endFlagSet = true
	g.endReport = report
}

// EndReport returns the report passed to SetGameEnd, valid once the state
// machine has reached End. Nil if SetGameEnd was never called or was
// called with a nil report; End is only ever reached through SetGameEnd.
func (g *GameFw) EndReport() GameOverReport { return g.endReport }

// EnqueueInbound feeds one raw packet into this tick's ingress queue.
// Called by the transport layer as packets arrive; draining happens
// inside Tick.
func (g *GameFw) EnqueueInbound(p InboundPacket) {
	g.inbound = append(g.inbound, p)
}

// DrainOutbound returns and clears the messages queued for delivery this
// tick. Called by the transport layer after Tick returns.
func (g *GameFw) DrainOutbound() []OutboundPacket {
	out := g.outbound
	g.outbound = nil
	return out
}

// send enqueues msg tagged with layer, stamped with the current tick,
// visible to the clients Visibility selects.
func (g *GameFw) send(layer codec.Layer, msg codec.Tagged, vis Visibility) {
	frame, kind, err := codec.Encode(layer, g.tick, msg)
	if err != nil {
		g.log.Error("gamefw: failed to encode outbound message", "err", err)
		return
	}
	g.outbound = append(g.outbound, OutboundPacket{Visibility: vis, Channel: kind, Frame: frame})
}

// SendFw queues a framework message.
func (g *GameFw) SendFw(msg codec.Tagged, vis Visibility) { g.send(codec.LayerFramework, msg, vis) }

// Send queues a domain message.
func (g *GameFw) Send(msg codec.Tagged, vis Visibility) { g.send(codec.LayerCore, msg, vis) }

// SendToClient is visibility sugar for Send(msg, VisClient(id)).
func (g *GameFw) SendToClient(msg codec.Tagged, id ids.ClientId) { g.Send(msg, VisClient(id)) }

// SendToAll is visibility sugar for Send(msg, VisGlobal()).
func (g *GameFw) SendToAll(msg codec.Tagged) { g.Send(msg, VisGlobal()) }

// Shutdown is returned by Tick once the End-state grace period elapses,
// telling the caller to terminate the instance.
type TickResult struct {
	Shutdown bool
}

// Tick advances the state machine by one step, in the order spec.md §4.5
// mandates: advance tick, evaluate/apply transitions, drain inbound
// packets to the domain handler, let the caller run domain logic (the
// caller does this between Tick and DrainOutbound — out of scope here),
// then test the End-state shutdown countdown.
func (g *GameFw) Tick() TickResult {
	g.tick = g.tick.Next()

	prev := g.state
	g.evaluateTransition()
	if g.state != prev {
		if g.OnExit != nil {
			g.OnExit(prev)
		}
		if g.state == End {
			g.preEndTick = g.tick
		}
		if g.OnEnter != nil {
			g.OnEnter(g.state)
		}
	}

	g.drainInbound()

	if g.state == End {
		elapsed := uint32(g.tick) - uint32(g.preEndTick)
		if elapsed >= g.cfg.MaxEndTicks {
			return TickResult{Shutdown: true}
		}
	}
	return TickResult{}
}

func (g *GameFw) evaluateTransition() {
	switch g.state {
	case End:
		return
	default:
		if g.endFlagSet {
			g.state = End
			return
		}
		if g.state == Init {
			if g.readiness.AllReady() || uint32(g.tick) > g.cfg.MaxInitTicks {
				g.state = Game
			}
		}
	}
}

func (g *GameFw) drainInbound() {
	packets := g.inbound
	g.inbound = nil

	for _, p := range packets {
		if _, ok := g.clients[p.From]; !ok {
			g.log.Debug("gamefw: dropping packet from unknown client", "client", p.From)
			continue
		}

		env, msg, err := codec.Decode(p.Frame)
		if err != nil {
			g.log.Debug("gamefw: dropping malformed packet", "client", p.From, "err", err)
			continue
		}
		if !codec.ValidateChannel(msg, p.ReceivedOn) {
			g.log.Debug("gamefw: dropping channel-kind mismatch",
				"client", p.From, "declared", msg.ChannelKind(), "received_on", p.ReceivedOn)
			continue
		}

		if g.handler != nil {
			g.handler(p.From, env.Layer, msg)
		}
	}
}
