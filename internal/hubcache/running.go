package hubcache

import (
	"errors"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/supervisor"
)

var ErrRunningGameNotFound = errors.New("hubcache: running game not found")

// Completion pairs a finished game's id with its terminal supervisor
// status, delivered asynchronously via RunningGamesCache.Completions.
type Completion struct {
	GameID ids.GameId
	Status supervisor.Status
}

// RunningGamesCache holds the supervisor handle for every game instance
// currently executing under this hub (spec.md §4.13). Each inserted
// game's completion is watched on its own goroutine and surfaced on the
// shared Completions channel, so the hub's tick loop can drain finished
// games without blocking on any one supervisor's Wait.
type RunningGamesCache struct {
	games       map[ids.GameId]*RunningGame
	Completions chan Completion
}

func NewRunningGamesCache() *RunningGamesCache {
	return &RunningGamesCache{
		games:       make(map[ids.GameId]*RunningGame),
		Completions: make(chan Completion, 64),
	}
}

// Insert registers a newly spawned game instance and begins watching it
// for completion.
func (c *RunningGamesCache) Insert(rg *RunningGame) {
	c.games[rg.GameID] = rg
	go func() {
		status := rg.Supervisor.Wait()
		c.Completions <- Completion{GameID: rg.GameID, Status: status}
	}()
}

// Get returns a running game's supervisor handle by id.
func (c *RunningGamesCache) Get(id ids.GameId) (*RunningGame, bool) {
	g, ok := c.games[id]
	return g, ok
}

// Remove deregisters a game, e.g. once its GameOverReport has been
// forwarded to host or its abort has been acknowledged.
func (c *RunningGamesCache) Remove(id ids.GameId) (*RunningGame, bool) {
	g, ok := c.games[id]
	if !ok {
		return nil, false
	}
	delete(c.games, id)
	return g, true
}

// Len reports how many games are currently running — feeds the capacity
// tracker's accounting.
func (c *RunningGamesCache) Len() int {
	return len(c.games)
}
