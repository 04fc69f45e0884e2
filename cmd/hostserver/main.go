// Command hostserver runs the arena host server: the authoritative
// directory of users, lobbies, pending launches, and ongoing games
// (spec.md §4.8-§4.12, §4.14). It generalizes the teacher's GameServer
// from a single room-protocol mux to the host's two connection-oriented
// channels (host↔user, host↔hub), each multiplexed over its own
// gorilla/mux websocket route (internal/transport.Router).
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/config"
	"github.com/arenahost/backend/internal/hostcache"
	"github.com/arenahost/backend/internal/hostproto"
	"github.com/arenahost/backend/internal/hubproto"
	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/randhash"
	"github.com/arenahost/backend/internal/tokens"
	"github.com/arenahost/backend/internal/transport"
	"github.com/spf13/cobra"
)

func main() {
	cmd := config.NewHostServerCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openLobbyChecker allows any lobby: no password policy, no member caps,
// launchable the moment the owner asks. A real deployment would plug in a
// domain-specific hostcache.LobbyChecker here (spec.md §4.8, §9).
type openLobbyChecker struct{}

func (openLobbyChecker) CheckLobby(*hostcache.Lobby) error { return nil }
func (openLobbyChecker) AllowNewMember(*hostcache.Lobby, ids.UserId, hostcache.LobbyMember, string) error {
	return nil
}
func (openLobbyChecker) CanLaunch(*hostcache.Lobby) bool { return true }

// idGen mints LobbyId/GameId values from the shared Rand64 chain (spec.md
// §4.2), giving the PRNG an in-tree consumer beyond tests per
// SPEC_FULL.md §2.
type idGen struct {
	mu  sync.Mutex
	rng *randhash.Rand64
}

func newIDGen() *idGen {
	return &idGen{rng: randhash.New("arenahost.ids", randSeedHi(), randSeedLo())}
}

func (g *idGen) nextLobbyID() ids.LobbyId {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ids.LobbyId(g.rng.Next())
}

func (g *idGen) nextGameID() ids.GameId {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ids.GameId(g.rng.Next())
}

func randSeedHi() uint64 { return uint64(time.Now().UnixNano()) }
func randSeedLo() uint64 { return uint64(os.Getpid())<<32 | uint64(time.Now().UnixNano()&0xffffffff) }

// server owns every live connection and the hostproto.Driver that answers
// through them. mu serializes every cache mutation, whether it originates
// from a connection's own goroutine or the periodic sweep loop — the
// single-threaded cooperative tick model of spec.md §5, enforced here with
// a mutex instead of a literal single thread, matching how the teacher's
// Room guards its player map.
type server struct {
	mu     sync.Mutex
	log    *slog.Logger
	driver *hostproto.Driver
	ids    *idGen

	users map[ids.UserId]*transport.Conn
	hubs  map[ids.HubId]*transport.Conn
}

func run(cmd *cobra.Command, cfg config.HostServerConfig) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	signingKey := cfg.TokenSigningKey
	if signingKey == "" {
		logger.Warn("hostserver: no --token-signing-key set, using an ephemeral dev key")
		signingKey = "dev-only-insecure-key"
	}

	s := &server{
		log:   logger,
		ids:   newIDGen(),
		users: make(map[ids.UserId]*transport.Conn),
		hubs:  make(map[ids.HubId]*transport.Conn),
	}

	driverCfg := hostproto.Config{
		Lobbies: hostcache.NewLobbiesCache(hostcache.LobbiesCacheConfig{
			MaxRequestSize: cfg.MaxLobbySearch,
			Checker:        openLobbyChecker{},
		}),
		Pending: hostcache.NewPendingLobbiesCache(hostcache.PendingLobbiesCacheConfig{
			AckTimeout: cfg.AckTimeout,
		}),
		Ongoing: hostcache.NewOngoingGamesCache(hostcache.OngoingGamesCacheConfig{
			StartBuffer: cfg.OngoingGameExpiry,
		}),
		Users:     hostcache.NewUsersCache(),
		Hubs:      hostcache.NewGameHubsCache(),
		HubBuffer: hostcache.NewGameHubDisconnectBuffer(hostcache.GameHubDisconnectBufferConfig{ExpiryDuration: cfg.HubDisconnectExpiry}),
		Minter:    tokens.NewMinter([]byte(signingKey), cfg.TokenTTL),
		Users2Hub: userSender{s},
		ToHub:     hubSender{s},
		Logger:    logger,
	}
	s.driver = hostproto.New(driverCfg)

	router := transport.NewRouter(cfg.EnableCORS, logger, s.onUserConn, s.onHubConn)

	go s.sweepLoop(cfg.TicksPerSec)

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	logger.Info("hostserver: listening", "addr", addr)
	return http.ListenAndServe(addr, router)
}

func (s *server) sweepLoop(ticksPerSec uint32) {
	if ticksPerSec == 0 {
		ticksPerSec = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(ticksPerSec))
	defer ticker.Stop()
	for now := range ticker.C {
		s.mu.Lock()
		s.driver.SweepExpired(now)
		s.mu.Unlock()
	}
}

// onUserConn drives one user connection end to end: the first frame must
// be a HostUserConnectMsg, after which every subsequent frame is routed to
// the matching hostproto handler.
func (s *server) onUserConn(conn *transport.Conn) {
	userID, ok := s.awaitUserHandshake(conn)
	if !ok {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.users[userID] = conn
	s.mu.Unlock()
	s.sendUser(conn, hostproto.HostUserConnectAck{UserID: userID})

	for ev := range conn.Events {
		if ev.Kind != transport.EventMessage {
			continue
		}
		_, msg, err := codec.Decode(ev.Payload)
		if err != nil {
			s.log.Debug("hostserver: dropping malformed user frame", "user", userID, "err", err)
			continue
		}
		s.handleUserMessage(conn, userID, msg)
	}

	s.mu.Lock()
	delete(s.users, userID)
	s.driver.HandleUserDisconnected(userID)
	s.mu.Unlock()
}

func (s *server) awaitUserHandshake(conn *transport.Conn) (ids.UserId, bool) {
	for ev := range conn.Events {
		switch ev.Kind {
		case transport.EventMessage:
			_, msg, err := codec.Decode(ev.Payload)
			if err != nil {
				return ids.UserId{}, false
			}
			hello, ok := msg.(hostproto.HostUserConnectMsg)
			if !ok {
				s.log.Warn("hostserver: first user frame was not HostUserConnectMsg")
				return ids.UserId{}, false
			}
			userID := ids.NewUserId()
			s.mu.Lock()
			s.driver.HandleUserConnected(userID, hello.Connection)
			s.mu.Unlock()
			return userID, true
		case transport.EventDisconnected:
			return ids.UserId{}, false
		}
	}
	return ids.UserId{}, false
}

func (s *server) handleUserMessage(conn *transport.Conn, user ids.UserId, msg codec.Tagged) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case hostproto.LobbySearchRequest:
		s.sendUser(conn, s.driver.HandleLobbySearch(m))

	case hostproto.MakeLobbyRequest:
		join, ok, reason := s.driver.HandleMakeLobby(user, m, s.ids.nextLobbyID)
		s.replyOrReject(conn, join, ok, reason)

	case hostproto.JoinLobbyRequest:
		join, ok, reason := s.driver.HandleJoinLobby(user, m)
		s.replyOrReject(conn, join, ok, reason)

	case hostproto.LeaveLobbyRequest:
		ok, reason := s.driver.HandleLeaveLobby(user, m)
		s.ackOrReject(conn, ok, reason)

	case hostproto.LaunchLobbyGameRequest:
		ok, reason := s.driver.HandleLaunchLobbyGame(user, m, time.Now())
		s.ackOrReject(conn, ok, reason)

	case hostproto.GetConnectTokenRequest:
		resp, ok, reason := s.driver.HandleGetConnectToken(user, m, time.Now())
		s.replyOrReject(conn, resp, ok, reason)

	case hostproto.AckPendingLobby:
		s.driver.HandleAckPendingLobby(user, m, s.ids.nextGameID)

	case hostproto.NackPendingLobby:
		s.driver.HandleNackPendingLobby(m)

	default:
		s.log.Debug("hostserver: dropping unhandled user message", "user", user, "type", fmt.Sprintf("%T", m))
	}
}

func (s *server) replyOrReject(conn *transport.Conn, reply codec.Tagged, ok bool, reason string) {
	if ok {
		s.sendUser(conn, reply)
		return
	}
	s.sendUser(conn, hostproto.Reject{Reason: reason})
}

func (s *server) ackOrReject(conn *transport.Conn, ok bool, reason string) {
	if ok {
		s.sendUser(conn, hostproto.Ack{})
		return
	}
	s.sendUser(conn, hostproto.Reject{Reason: reason})
}

// onHubConn drives one hub connection. The first frame must be a
// HostHubConnectMsg carrying the hub's persistent HubId, so a reconnect
// within the disconnect-buffer TTL (spec.md §4.14) restores the same
// record rather than minting a new one.
func (s *server) onHubConn(conn *transport.Conn) {
	hubID, ok := s.awaitHubHandshake(conn)
	if !ok {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.hubs[hubID] = conn
	s.mu.Unlock()

	for ev := range conn.Events {
		if ev.Kind != transport.EventMessage {
			continue
		}
		_, msg, err := codec.Decode(ev.Payload)
		if err != nil {
			s.log.Debug("hostserver: dropping malformed hub frame", "hub", hubID, "err", err)
			continue
		}
		s.handleHubMessage(hubID, msg)
	}

	s.mu.Lock()
	delete(s.hubs, hubID)
	s.driver.HandleHubDisconnected(hubID, time.Now())
	s.mu.Unlock()
}

func (s *server) awaitHubHandshake(conn *transport.Conn) (ids.HubId, bool) {
	for ev := range conn.Events {
		switch ev.Kind {
		case transport.EventMessage:
			_, msg, err := codec.Decode(ev.Payload)
			if err != nil {
				return ids.HubId{}, false
			}
			hello, ok := msg.(hostproto.HostHubConnectMsg)
			if !ok {
				s.log.Warn("hostserver: first hub frame was not HostHubConnectMsg")
				return ids.HubId{}, false
			}
			s.mu.Lock()
			s.driver.HandleHubConnected(hello.HubID, hello.InitialCapacity)
			s.mu.Unlock()
			return hello.HubID, true
		case transport.EventDisconnected:
			return ids.HubId{}, false
		}
	}
	return ids.HubId{}, false
}

func (s *server) handleHubMessage(hub ids.HubId, msg codec.Tagged) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case hubproto.Capacity:
		s.driver.HandleHubCapacity(hub, m)
	case hubproto.GameStart:
		s.driver.HandleHubGameStart(hub, m, time.Now())
	case hubproto.GameOver:
		s.driver.HandleHubGameOver(m)
	case hubproto.HubAbort:
		s.driver.HandleHubAbort(hub, m)
	default:
		s.log.Debug("hostserver: dropping unhandled hub message", "hub", hub, "type", fmt.Sprintf("%T", m))
	}
}

func (s *server) sendUser(conn *transport.Conn, msg codec.Tagged) {
	frame, _, err := codec.Encode(codec.LayerCore, ids.Tick(0), msg)
	if err != nil {
		s.log.Error("hostserver: failed to encode outbound user frame", "err", err)
		return
	}
	_ = conn.Send(frame)
}

// userSender and hubSender adapt server's live connection maps to the
// hostproto.UserSender/HubSender interfaces the driver depends on.
type userSender struct{ s *server }

func (u userSender) SendToUser(id ids.UserId, msg codec.Tagged) {
	conn, ok := u.s.users[id]
	if !ok {
		return
	}
	u.s.sendUser(conn, msg)
}

type hubSender struct{ s *server }

func (h hubSender) SendToHub(id ids.HubId, msg codec.Tagged) {
	conn, ok := h.s.hubs[id]
	if !ok {
		return
	}
	h.s.sendUser(conn, msg)
}
