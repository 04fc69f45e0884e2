package hostcache

import (
	"errors"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/ticksweep"
)

var (
	ErrOngoingGameExists   = errors.New("hostcache: ongoing game already present")
	ErrOngoingGameNotFound = errors.New("hostcache: ongoing game not found")
)

// OngoingGamesCacheConfig configures how long a game stays in the cache:
// StartBuffer is a fixed lifetime counted from Insert, i.e. from the hub's
// GameStart confirmation (spec.md §4.10).
type OngoingGamesCacheConfig struct {
	StartBuffer time.Duration
}

// OngoingGamesCache tracks games currently running on hubs with a forward
// index (game id -> game) and a reverse index (user id -> game id) for
// O(1) "what game is this user in" lookups.
type OngoingGamesCache struct {
	cfg OngoingGamesCacheConfig

	games      map[ids.GameId]*OngoingGame
	insertedAt map[ids.GameId]time.Time
	byUser     map[ids.UserId]ids.GameId
}

func NewOngoingGamesCache(cfg OngoingGamesCacheConfig) *OngoingGamesCache {
	return &OngoingGamesCache{
		cfg:        cfg,
		games:      make(map[ids.GameId]*OngoingGame),
		insertedAt: make(map[ids.GameId]time.Time),
		byUser:     make(map[ids.UserId]ids.GameId),
	}
}

// Insert records a newly launched game and indexes each participant.
func (c *OngoingGamesCache) Insert(g *OngoingGame, now time.Time) error {
	if _, exists := c.games[g.GameID]; exists {
		return ErrOngoingGameExists
	}
	c.games[g.GameID] = g
	c.insertedAt[g.GameID] = now
	for _, info := range g.StartInfos {
		c.byUser[info.UserID] = g.GameID
	}
	return nil
}

// Remove deletes game id and its reverse-index entries.
func (c *OngoingGamesCache) Remove(id ids.GameId) (*OngoingGame, bool) {
	g, ok := c.games[id]
	if !ok {
		return nil, false
	}
	delete(c.games, id)
	delete(c.insertedAt, id)
	for _, info := range g.StartInfos {
		if c.byUser[info.UserID] == id {
			delete(c.byUser, info.UserID)
		}
	}
	return g, true
}

// Get returns an ongoing game by id.
func (c *OngoingGamesCache) Get(id ids.GameId) (*OngoingGame, bool) {
	g, ok := c.games[id]
	return g, ok
}

// GetUserGame returns the game a user currently participates in, if any.
func (c *OngoingGamesCache) GetUserGame(user ids.UserId) (*OngoingGame, bool) {
	id, ok := c.byUser[user]
	if !ok {
		return nil, false
	}
	g, ok := c.games[id]
	return g, ok
}

// DrainExpired removes and returns every game inserted at least
// StartBuffer before now (spec.md §4.10). A game only enters this cache
// already confirmed (Insert is only ever called from HandleHubGameStart),
// so StartBuffer here is a lifetime counted from the hub's GameStart, not
// a pre-confirmation grace period; nothing the hub sends later refreshes
// it.
func (c *OngoingGamesCache) DrainExpired(now time.Time) []*OngoingGame {
	expiredIDs := ticksweep.ExpiredKeys(c.insertedAt, c.cfg.StartBuffer, now)
	expired := make([]*OngoingGame, 0, len(expiredIDs))
	for _, id := range expiredIDs {
		g := c.games[id]
		expired = append(expired, g)
		c.Remove(id)
	}
	return expired
}
