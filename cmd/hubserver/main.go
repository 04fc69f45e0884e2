// Command hubserver runs a game hub: a worker process that accepts
// StartGame dispatches from the host, resolves a launch pack for each,
// and supervises the spawned cmd/gameinstance child processes (spec.md
// §4.13). Unlike the host, a hub is the websocket *client* of the
// connection — it dials out to the host's /ws/hub endpoint and reconnects
// on drop, the way the teacher's client-facing code never needed to but
// every outbound-dialing worker in the pack does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/config"
	"github.com/arenahost/backend/internal/hostproto"
	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/hubproto"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func main() {
	cmd := config.NewGameHubServerCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg config.GameHubServerConfig) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hubID := ids.NewHubId()
	h := &hub{
		log:   logger,
		hubID: hubID,
		ports: newPortAllocator(20000),
	}

	h.driver = hubproto.New(hubproto.Config{
		Pending:     hubcache.NewPendingGamesCache(hubcache.PendingGamesCacheConfig{LaunchTimeout: cfg.LaunchTimeout}),
		Running:     hubcache.NewRunningGamesCache(),
		Capacity:    hubcache.NewCapacityTracker(cfg.MaxCapacity),
		LaunchPacks: h.ports,
		ToHost:      h,
		InstanceBin: cfg.InstanceBin,
		InstanceArgs: func(pack hubcache.GameLaunchPack) []string {
			b, _ := json.Marshal(pack)
			return []string{"-G", string(b)}
		},
		KillGrace: cfg.KillGrace,
	})

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := h.connectAndServe(ctx, cfg); err != nil {
			logger.Warn("hubserver: connection lost, retrying", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

type hub struct {
	log    *slog.Logger
	hubID  ids.HubId
	driver *hubproto.Driver
	ports  *portAllocator

	mu   sync.Mutex
	conn *transport.Conn
}

func (h *hub) connectAndServe(ctx context.Context, cfg config.GameHubServerConfig) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.HostAddr, nil)
	if err != nil {
		return fmt.Errorf("hubserver: dial host: %w", err)
	}
	conn := transport.NewConn(ws, h.log)

	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.conn = nil
		h.mu.Unlock()
		conn.Close()
	}()

	h.driver.OnReconnect()
	h.SendToHost(hostproto.HostHubConnectMsg{HubID: h.hubID, InitialCapacity: uint16(cfg.MaxCapacity)})

	tickCtx, cancelTick := context.WithCancel(ctx)
	defer cancelTick()
	go h.tickLoop(tickCtx, cfg.TicksPerSec)

	for ev := range conn.Events {
		if ev.Kind != transport.EventMessage {
			continue
		}
		_, msg, err := codec.Decode(ev.Payload)
		if err != nil {
			h.log.Debug("hubserver: dropping malformed frame from host", "err", err)
			continue
		}
		h.handleHostMessage(ctx, msg)
	}
	return fmt.Errorf("hubserver: host connection closed")
}

func (h *hub) handleHostMessage(ctx context.Context, msg codec.Tagged) {
	switch m := msg.(type) {
	case hubproto.StartGame:
		if err := h.driver.HandleStartGame(m, time.Now()); err != nil {
			h.log.Warn("hubserver: rejecting StartGame", "err", err)
			return
		}
		gameID := m.Request.GameID
		go func() {
			if err := h.driver.ResolveLaunchPack(ctx, gameID); err != nil {
				h.log.Warn("hubserver: failed to launch game", "game", gameID, "err", err)
			}
		}()

	case hubproto.HostAbort:
		h.driver.HandleHostAbort(ctx, m)

	default:
		h.log.Debug("hubserver: dropping unhandled host message", "type", fmt.Sprintf("%T", m))
	}
}

func (h *hub) tickLoop(ctx context.Context, ticksPerSec uint32) {
	if ticksPerSec == 0 {
		ticksPerSec = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(ticksPerSec))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.driver.Tick()
			h.driver.DrainExpiredPending(now)
			h.driver.PollCompletions()
		}
	}
}

// SendToHost implements hubproto.HostSender.
func (h *hub) SendToHost(msg codec.Tagged) {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		h.log.Warn("hubserver: dropping outbound message, not connected", "type", fmt.Sprintf("%T", msg))
		return
	}
	frame, _, err := codec.Encode(codec.LayerCore, ids.Tick(0), msg)
	if err != nil {
		h.log.Error("hubserver: failed to encode outbound frame", "err", err)
		return
	}
	_ = conn.Send(frame)
}

// portAllocator is the default hubcache.GameLaunchPackSource: it hands
// each game the next sequential loopback port for its websocket listener
// and passes the request's members straight through. A real deployment
// would plug in a domain-specific source here (map rotation, container
// orchestration); this one exists so the hub is runnable standalone.
type portAllocator struct {
	mu   sync.Mutex
	next int
}

func newPortAllocator(start int) *portAllocator {
	return &portAllocator{next: start}
}

func (p *portAllocator) RequestLaunchPack(req hubcache.GameStartRequest) (hubcache.GameLaunchPack, error) {
	p.mu.Lock()
	port := p.next
	p.next++
	p.mu.Unlock()

	return hubcache.GameLaunchPack{
		GameID:     req.GameID,
		ListenAddr: fmt.Sprintf("127.0.0.1:%d", port),
		Members:    req.Members,
	}, nil
}
