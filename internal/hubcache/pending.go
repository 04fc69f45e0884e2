package hubcache

import (
	"errors"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/ticksweep"
)

var (
	ErrPendingGameExists   = errors.New("hubcache: pending game already present")
	ErrPendingGameNotFound = errors.New("hubcache: pending game not found")
)

// PendingGamesCacheConfig configures the TTL a GameStartRequest may sit
// waiting for its launch pack before the hub gives up and reports an
// abort to the host (spec.md §4.13).
type PendingGamesCacheConfig struct {
	LaunchTimeout time.Duration
}

type PendingGamesCache struct {
	cfg     PendingGamesCacheConfig
	entries map[ids.GameId]*PendingGame
}

func NewPendingGamesCache(cfg PendingGamesCacheConfig) *PendingGamesCache {
	return &PendingGamesCache{cfg: cfg, entries: make(map[ids.GameId]*PendingGame)}
}

// Insert records a just-arrived GameStartRequest as pending.
func (c *PendingGamesCache) Insert(req GameStartRequest, now time.Time) error {
	if _, exists := c.entries[req.GameID]; exists {
		return ErrPendingGameExists
	}
	c.entries[req.GameID] = &PendingGame{Request: req, Born: now}
	return nil
}

// Extract removes and returns a pending game once its launch pack is
// ready, so the caller can hand it to the supervisor for spawning.
func (c *PendingGamesCache) Extract(id ids.GameId) (*PendingGame, bool) {
	p, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	delete(c.entries, id)
	return p, true
}

// Get returns a pending game without removing it.
func (c *PendingGamesCache) Get(id ids.GameId) (*PendingGame, bool) {
	p, ok := c.entries[id]
	return p, ok
}

// DrainExpired removes and returns every pending game older than
// LaunchTimeout as of now — the caller reports each as an abort to host.
func (c *PendingGamesCache) DrainExpired(now time.Time) []*PendingGame {
	born := make(map[ids.GameId]time.Time, len(c.entries))
	for id, p := range c.entries {
		born[id] = p.Born
	}
	expiredIDs := ticksweep.ExpiredKeys(born, c.cfg.LaunchTimeout, now)

	expired := make([]*PendingGame, 0, len(expiredIDs))
	for _, id := range expiredIDs {
		expired = append(expired, c.entries[id])
		delete(c.entries, id)
	}
	return expired
}

// Len reports how many games are currently pending — feeds the capacity
// tracker's accounting.
func (c *PendingGamesCache) Len() int {
	return len(c.entries)
}
