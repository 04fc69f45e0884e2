// Package clientfw implements the client-side per-frame tick loop of
// spec.md §4.6: the Setup→Connecting→Syncing→Init→Game→End state machine,
// its buffered-message handling across the Syncing→Init edge, and
// init-progress reporting.
package clientfw

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/gamefw"
	"github.com/arenahost/backend/internal/ids"
)

// State is a node of the client framework's state machine.
type State int

const (
	Setup State = iota
	Connecting
	Syncing
	Init
	Game
	End
)

func (s State) String() string {
	switch s {
	case Setup:
		return "setup"
	case Connecting:
		return "connecting"
	case Syncing:
		return "syncing"
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

// InitState tracks the client's own loading progress, independent of the
// connection state machine above it.
type InitState int

const (
	InProgress InitState = iota
	Done
)

// ConnEvent is a connection-progress event driven by the transport layer
// (outside the core, per spec.md §4.6).
type ConnEvent int

const (
	EventConnectAttemptStarted ConnEvent = iota // Setup -> Connecting
	EventConnected                              // Connecting -> Syncing
	EventFirstReplicationMessage                // Syncing -> Init
	EventDisconnected                           // any -> Setup
)

// CurrentState is the server's framework broadcast of its own gamefw
// state; it drives Init->Game and Game->End, but only once this client has
// finished its own local initialization (spec.md §4.6).
type CurrentState struct {
	Server gamefw.State
}

func (CurrentState) ChannelKind() codec.ChannelKind { return codec.Ordered }

// SetInitProgress is sent once per tick if the client's init progress
// changed since the last tick.
type SetInitProgress struct {
	Progress float32
}

func (SetInitProgress) ChannelKind() codec.ChannelKind { return codec.Unordered }

func init() {
	codec.Register(CurrentState{})
	codec.Register(SetInitProgress{})
}

// Config configures the client framework.
type Config struct {
	TicksPerSec uint32
	ClientId    ids.ClientId
}

func (c Config) validate() error {
	if c.TicksPerSec < 1 {
		return errors.New("clientfw: TicksPerSec must be >= 1")
	}
	return nil
}

// MessageHandler processes one message consumed by the client (Init, Game
// or End states, including buffered Syncing messages replayed on entry to
// Init).
type MessageHandler func(layer codec.Layer, msg codec.Tagged)

// ClientFw drives one client's per-frame tick loop.
type ClientFw struct {
	cfg Config
	log *slog.Logger

	state     State
	initState InitState

	lastSentProgress float32
	progress         float32
	progressDirty    bool

	buffered []rawMessage
	handler  MessageHandler

	outbound []codec.Tagged // domain requests enqueued by the app this tick
}

type rawMessage struct {
	layer codec.Layer
	msg   codec.Tagged
}

// New builds a ClientFw starting in Setup.
func New(cfg Config, handler MessageHandler, logger *slog.Logger) (*ClientFw, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientFw{cfg: cfg, log: logger, state: Setup, handler: handler}, nil
}

func (c *ClientFw) State() State         { return c.state }
func (c *ClientFw) InitState() InitState { return c.initState }

// SetInitDone marks local loading as complete, unblocking CurrentState
// messages received from the server.
func (c *ClientFw) SetInitDone() { c.initState = Done }

// SetProgress records the client's current init progress (0..1); it is
// flushed as SetInitProgress at most once per tick, only if it changed.
func (c *ClientFw) SetProgress(p float32) {
	if p != c.progress {
		c.progress = p
		c.progressDirty = true
	}
}

// OnConnEvent applies a transport-driven connection event.
func (c *ClientFw) OnConnEvent(ev ConnEvent) {
	if ev == EventDisconnected {
		c.state = Setup
		c.buffered = nil
		return
	}

	switch c.state {
	case Setup:
		if ev == EventConnectAttemptStarted {
			c.state = Connecting
		}
	case Connecting:
		if ev == EventConnected {
			c.state = Syncing
			c.buffered = nil
		}
	case Syncing:
		if ev == EventFirstReplicationMessage {
			c.state = Init
			c.flushBuffered()
		}
	}
}

func (c *ClientFw) flushBuffered() {
	buffered := c.buffered
	c.buffered = nil
	if c.handler == nil {
		return
	}
	for _, m := range buffered {
		c.handler(m.layer, m.msg)
	}
}

// acceptsRequests reports whether the current state allows outgoing
// domain requests (spec.md §4.6 table).
func (c *ClientFw) acceptsRequests() bool {
	return c.state != Setup && c.state != Connecting
}

// EnqueueRequest queues a domain request to be sent this tick, dropped
// silently if the current state does not accept outgoing requests.
func (c *ClientFw) EnqueueRequest(msg codec.Tagged) {
	if !c.acceptsRequests() {
		c.log.Debug("clientfw: dropping request, state does not accept outgoing traffic", "state", c.state)
		return
	}
	c.outbound = append(c.outbound, msg)
}

// OnMessage delivers one inbound framed message to the client framework.
// Messages are not received at all in Setup/Connecting (the transport
// layer should not even call this then); Syncing buffers them; Init/Game/
// End consume them immediately, with CurrentState specially gated on
// InitState.
func (c *ClientFw) OnMessage(layer codec.Layer, msg codec.Tagged) {
	switch c.state {
	case Setup, Connecting:
		c.log.Debug("clientfw: dropping message, not connected", "state", c.state)
		return
	case Syncing:
		c.buffered = append(c.buffered, rawMessage{layer, msg})
		return
	}

	if cs, ok := msg.(CurrentState); ok {
		c.applyCurrentState(cs)
		return
	}

	if c.handler != nil {
		c.handler(layer, msg)
	}
}

func (c *ClientFw) applyCurrentState(cs CurrentState) {
	if c.initState != Done {
		// Local loading still in progress: server state changes are
		// ignored until we catch up (spec.md §4.6).
		return
	}
	switch {
	case c.state == Init && cs.Server == gamefw.Game:
		c.state = Game
	case c.state == Game && cs.Server == gamefw.End:
		c.state = End
	}
}

// Tick runs one client-framework tick: packages accumulated init progress
// into SetInitProgress if it changed, and returns any domain requests
// queued via EnqueueRequest this tick, both ready for the transport layer
// to send. Returns nil, nil if the state forbids sending.
func (c *ClientFw) Tick() (progress *SetInitProgress, requests []codec.Tagged) {
	if !c.acceptsRequests() {
		c.outbound = nil
		return nil, nil
	}
	if c.progressDirty {
		p := SetInitProgress{Progress: c.progress}
		progress = &p
		c.lastSentProgress = c.progress
		c.progressDirty = false
	}
	requests = c.outbound
	c.outbound = nil
	return progress, requests
}
