// Command gameinstance runs one supervised game instance: a server-
// authoritative tick loop (internal/gamefw) fronted by a tiny websocket
// listener for attaching clients, driven from stdin/stdout by its
// supervising hub per the protocol of internal/supervisor (spec.md §4.7).
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/arenahost/backend/internal/clientfw"
	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/config"
	"github.com/arenahost/backend/internal/gamefw"
	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func main() {
	cmd := config.NewGameFwCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type inboundMsg struct {
	from    ids.ClientId
	payload []byte
}

func run(cmd *cobra.Command, cfg config.GameFwConfig, launchPackJSON string) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var pack hubcache.GameLaunchPack
	if err := json.Unmarshal([]byte(launchPackJSON), &pack); err != nil {
		return fmt.Errorf("gameinstance: parse launch pack: %w", err)
	}

	clientIDs := make([]ids.ClientId, 0, len(pack.Members))
	for _, m := range pack.Members {
		clientIDs = append(clientIDs, m.ClientID)
	}

	inst := &instance{
		log:     logger,
		inbound: make(chan inboundMsg, 256),
		conns:   make(map[ids.ClientId]*transport.Conn),
		stdout:  bufio.NewWriter(os.Stdout),
	}

	handler := func(from ids.ClientId, _ codec.Layer, msg codec.Tagged) {
		inst.log.Debug("gameinstance: unhandled domain message", "from", from, "type", fmt.Sprintf("%T", msg))
	}

	g, err := gamefw.New(gamefw.Config{
		TicksPerSec:  cfg.TicksPerSec,
		MaxInitTicks: cfg.MaxInitTicks,
		MaxEndTicks:  cfg.MaxEndTicks,
	}, clientIDs, handler, logger)
	if err != nil {
		return fmt.Errorf("gameinstance: init: %w", err)
	}
	inst.fw = g

	go inst.listen(pack.ListenAddr)
	go inst.readCommands(os.Stdin)

	inst.tickLoop(cfg.TicksPerSec)
	return nil
}

// instance wires a gamefw.GameFw to a websocket listener on one side and
// the supervised-process stdio protocol on the other.
type instance struct {
	log *slog.Logger
	fw  *gamefw.GameFw

	inbound chan inboundMsg

	mu    sync.Mutex
	conns map[ids.ClientId]*transport.Conn

	stdoutMu sync.Mutex
	stdout   *bufio.Writer
}

func (inst *instance) listen(addr string) {
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			inst.log.Warn("gameinstance: websocket upgrade failed", "err", err)
			return
		}
		go inst.handleConn(transport.NewConn(ws, inst.log))
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		inst.log.Error("gameinstance: listener died", "addr", addr, "err", err)
	}
}

func (inst *instance) handleConn(conn *transport.Conn) {
	clientID, ok := inst.awaitHello(conn)
	if !ok {
		conn.Close()
		return
	}

	inst.mu.Lock()
	inst.conns[clientID] = conn
	inst.mu.Unlock()

	for ev := range conn.Events {
		if ev.Kind == transport.EventMessage {
			inst.inbound <- inboundMsg{from: clientID, payload: ev.Payload}
		}
	}

	inst.mu.Lock()
	delete(inst.conns, clientID)
	inst.mu.Unlock()
}

func (inst *instance) awaitHello(conn *transport.Conn) (ids.ClientId, bool) {
	for ev := range conn.Events {
		if ev.Kind != transport.EventMessage {
			continue
		}
		_, msg, err := codec.Decode(ev.Payload)
		if err != nil {
			return 0, false
		}
		hello, ok := msg.(gamefw.ClientHello)
		if !ok {
			inst.log.Warn("gameinstance: first client frame was not ClientHello")
			return 0, false
		}
		return hello.ClientID, true
	}
	return 0, false
}

func (inst *instance) readCommands(r *os.File) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var cmd hubcache.InstanceCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			inst.log.Warn("gameinstance: malformed command from hub", "err", err)
			continue
		}
		if cmd.Abort {
			inst.writeReport(hubcache.InstanceReport{Aborted: true})
			os.Exit(0)
		}
	}
}

func (inst *instance) writeReport(r hubcache.InstanceReport) {
	inst.stdoutMu.Lock()
	defer inst.stdoutMu.Unlock()
	b, err := json.Marshal(r)
	if err != nil {
		inst.log.Error("gameinstance: failed to marshal report", "err", err)
		return
	}
	inst.stdout.Write(b)
	inst.stdout.WriteByte('\n')
	inst.stdout.Flush()
}

func (inst *instance) tickLoop(ticksPerSec uint32) {
	if ticksPerSec == 0 {
		ticksPerSec = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(ticksPerSec))
	defer ticker.Stop()

	for range ticker.C {
		inst.drainInbound()

		res := inst.fw.Tick()
		inst.fw.SendFw(clientfw.CurrentState{Server: inst.fw.State()}, gamefw.VisGlobal())
		inst.flushOutbound()

		if res.Shutdown {
			inst.writeReport(hubcache.InstanceReport{GameOver: &hubcache.GameOverReport{OpaqueBytes: inst.fw.EndReport()}})
			os.Exit(0)
		}
	}
}

func (inst *instance) drainInbound() {
	for {
		select {
		case m := <-inst.inbound:
			_, msg, err := codec.Decode(m.payload)
			if err != nil {
				inst.log.Debug("gameinstance: dropping malformed packet", "from", m.from, "err", err)
				continue
			}
			inst.fw.EnqueueInbound(gamefw.InboundPacket{From: m.from, ReceivedOn: msg.ChannelKind(), Frame: m.payload})
		default:
			return
		}
	}
}

func (inst *instance) flushOutbound() {
	packets := inst.fw.DrainOutbound()
	if len(packets) == 0 {
		return
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()
	for clientID, conn := range inst.conns {
		for _, p := range packets {
			if p.Visibility.Includes(clientID) {
				_ = conn.Send(p.Frame)
			}
		}
	}
}
