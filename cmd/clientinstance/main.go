// Command clientinstance runs one supervised game client: the per-frame
// tick loop of internal/clientfw, attached to a game instance over
// websocket using the connect material supplied via -T/-S (spec.md §4.6,
// §6). It is the single piece of this system that runs on the player's
// machine rather than in the backend's own process tree.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/arenahost/backend/internal/clientfw"
	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/config"
	"github.com/arenahost/backend/internal/connectinfo"
	"github.com/arenahost/backend/internal/gamefw"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func main() {
	cmd := config.NewClientFwCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg config.ClientFwConfig, tokenJSON, startInfoJSON string) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var token connectinfo.ServerConnectToken
	if err := json.Unmarshal([]byte(tokenJSON), &token); err != nil {
		return fmt.Errorf("clientinstance: parse connect token: %w", err)
	}
	var start connectinfo.GameStartInfo
	if err := json.Unmarshal([]byte(startInfoJSON), &start); err != nil {
		return fmt.Errorf("clientinstance: parse start info: %w", err)
	}

	handler := func(_ codec.Layer, msg codec.Tagged) {
		logger.Debug("clientinstance: unhandled domain message", "type", fmt.Sprintf("%T", msg))
	}
	fw, err := clientfw.New(clientfw.Config{TicksPerSec: cfg.TicksPerSec, ClientId: start.ClientID}, handler, logger)
	if err != nil {
		return fmt.Errorf("clientinstance: init: %w", err)
	}
	// This demo client has no asset pipeline of its own to wait on, so it
	// declares itself ready for replication the moment it starts.
	fw.SetInitDone()

	c := &client{
		log:      logger,
		fw:       fw,
		addr:     start.ListenAddr,
		clientID: start.ClientID,
		gameID:   token.GameID,
	}

	go c.tickLoop(cfg.TicksPerSec)
	c.connectionLoop(cfg.ReconnectIntervalSecs)
	return nil
}

type client struct {
	log      *slog.Logger
	fw       *clientfw.ClientFw
	addr     string
	clientID ids.ClientId
	gameID   ids.GameId

	mu   sync.Mutex
	conn *transport.Conn
}

func (c *client) setConn(conn *transport.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *client) getConn() *transport.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// connectionLoop dials the game instance and, on any disconnect, retries
// at ReconnectIntervalSecs forever — the client framework's only
// automatic retry policy (spec.md §7).
func (c *client) connectionLoop(reconnectIntervalSecs uint32) {
	interval := time.Duration(reconnectIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}

	for {
		c.fw.OnConnEvent(clientfw.EventConnectAttemptStarted)

		ws, _, err := websocket.DefaultDialer.Dial("ws://"+c.addr+"/", nil)
		if err != nil {
			c.log.Warn("clientinstance: dial failed, retrying", "addr", c.addr, "err", err)
			c.fw.OnConnEvent(clientfw.EventDisconnected)
			time.Sleep(interval)
			continue
		}

		conn := transport.NewConn(ws, c.log)
		c.setConn(conn)
		c.fw.OnConnEvent(clientfw.EventConnected)
		c.sendHello(conn)

		c.drainEvents(conn)

		c.setConn(nil)
		c.fw.OnConnEvent(clientfw.EventDisconnected)
		time.Sleep(interval)
	}
}

func (c *client) sendHello(conn *transport.Conn) {
	c.send(conn, codec.LayerFramework, gamefw.ClientHello{ClientID: c.clientID})
}

func (c *client) drainEvents(conn *transport.Conn) {
	firstMessage := true
	for ev := range conn.Events {
		switch ev.Kind {
		case transport.EventMessage:
			env, msg, err := codec.Decode(ev.Payload)
			if err != nil {
				c.log.Debug("clientinstance: dropping malformed frame", "err", err)
				continue
			}
			if firstMessage {
				c.fw.OnConnEvent(clientfw.EventFirstReplicationMessage)
				firstMessage = false
			}
			c.fw.OnMessage(env.Layer, msg)
		case transport.EventDisconnected:
			return
		}
	}
}

func (c *client) tickLoop(ticksPerSec uint32) {
	if ticksPerSec == 0 {
		ticksPerSec = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(ticksPerSec))
	defer ticker.Stop()

	for range ticker.C {
		progress, requests := c.fw.Tick()
		conn := c.getConn()
		if conn == nil {
			continue
		}
		if progress != nil {
			c.send(conn, codec.LayerFramework, *progress)
		}
		for _, req := range requests {
			c.send(conn, codec.LayerCore, req)
		}
	}
}

func (c *client) send(conn *transport.Conn, layer codec.Layer, msg codec.Tagged) {
	frame, _, err := codec.Encode(layer, ids.Tick(0), msg)
	if err != nil {
		c.log.Error("clientinstance: failed to encode outbound frame", "err", err)
		return
	}
	_ = conn.Send(frame)
}
