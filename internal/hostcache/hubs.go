package hostcache

import (
	"errors"

	"github.com/arenahost/backend/internal/hubcache"
	"github.com/arenahost/backend/internal/ids"
)

var (
	ErrHubExists          = errors.New("hostcache: hub already registered")
	ErrHubNotFound        = errors.New("hostcache: hub not found")
	ErrGameNotFound       = errors.New("hostcache: game not tracked on any hub")
	ErrGameAlreadyTracked = errors.New("hostcache: game id already tracked on a hub")
)

// GameHubsCache tracks every connected hub's advertised capacity and the
// games it is running or about to run (spec.md §4.12). Best-hub selection
// is grounded on the teacher's Matchmaker.FindRoom scan-for-available-
// capacity idiom, generalized from a single fixed threshold to ranking by
// effective capacity across hubs. gameHub indexes every game id currently
// tracked on any hub (pending or running), mirroring the byUser index in
// hostcache/ongoing.go, so a game id can never be double-booked across
// hubs (spec.md §4.12, §8 "no game id is shared across hubs").
type GameHubsCache struct {
	hubs    map[ids.HubId]*HubRecord
	gameHub map[ids.GameId]ids.HubId
}

func NewGameHubsCache() *GameHubsCache {
	return &GameHubsCache{
		hubs:    make(map[ids.HubId]*HubRecord),
		gameHub: make(map[ids.GameId]ids.HubId),
	}
}

// InsertHub registers a newly connected hub with its advertised capacity.
func (c *GameHubsCache) InsertHub(id ids.HubId, capacity uint16) error {
	if _, exists := c.hubs[id]; exists {
		return ErrHubExists
	}
	c.hubs[id] = &HubRecord{
		Capacity:     capacity,
		PendingGames: make(map[ids.GameId]hubcache.GameStartRequest),
		RunningGames: make(map[ids.GameId]struct{}),
	}
	return nil
}

// RemoveHub deregisters a disconnected hub, returning whatever games it
// still held so the caller can fail them over or report them lost.
func (c *GameHubsCache) RemoveHub(id ids.HubId) (*HubRecord, bool) {
	h, ok := c.hubs[id]
	if !ok {
		return nil, false
	}
	delete(c.hubs, id)
	for game := range h.PendingGames {
		delete(c.gameHub, game)
	}
	for game := range h.RunningGames {
		delete(c.gameHub, game)
	}
	return h, true
}

// SetHubCapacity overwrites a hub's advertised capacity (sent by the hub
// on change or reconnect, per spec.md §4.13).
func (c *GameHubsCache) SetHubCapacity(id ids.HubId, capacity uint16) error {
	h, ok := c.hubs[id]
	if !ok {
		return ErrHubNotFound
	}
	h.Capacity = capacity
	return nil
}

// AddPendingGame reserves capacity on hub id for a game awaiting launch
// confirmation, caching the dispatched request for later verification by
// UpgradePendingGame/GetPendingRequest. Fails if game is already tracked
// on any hub, not just this one (spec.md §4.12).
func (c *GameHubsCache) AddPendingGame(id ids.HubId, game ids.GameId, request hubcache.GameStartRequest) error {
	h, ok := c.hubs[id]
	if !ok {
		return ErrHubNotFound
	}
	if _, exists := c.gameHub[game]; exists {
		return ErrGameAlreadyTracked
	}
	h.PendingGames[game] = request
	c.gameHub[game] = id
	return nil
}

// UpgradePendingGame moves game from pending to running on hub id, called
// once the hub reports the game actually started. Fails if game was not
// reserved as pending on this hub.
func (c *GameHubsCache) UpgradePendingGame(id ids.HubId, game ids.GameId) error {
	h, ok := c.hubs[id]
	if !ok {
		return ErrHubNotFound
	}
	if _, ok := h.PendingGames[game]; !ok {
		return ErrGameNotFound
	}
	delete(h.PendingGames, game)
	h.RunningGames[game] = struct{}{}
	return nil
}

// GetPendingRequest returns the GameStartRequest the host cached when it
// reserved game on hub id, so a hub's GameStart report can be checked
// against what was actually dispatched.
func (c *GameHubsCache) GetPendingRequest(id ids.HubId, game ids.GameId) (hubcache.GameStartRequest, bool) {
	h, ok := c.hubs[id]
	if !ok {
		return hubcache.GameStartRequest{}, false
	}
	req, ok := h.PendingGames[game]
	return req, ok
}

// RemovePendingGame drops a reservation without it ever starting, e.g.
// on ack timeout or hub disconnect.
func (c *GameHubsCache) RemovePendingGame(id ids.HubId, game ids.GameId) {
	if h, ok := c.hubs[id]; ok {
		delete(h.PendingGames, game)
	}
	delete(c.gameHub, game)
}

// RemoveGame drops a running game, e.g. on GameOver/Abort.
func (c *GameHubsCache) RemoveGame(id ids.HubId, game ids.GameId) {
	if h, ok := c.hubs[id]; ok {
		delete(h.RunningGames, game)
	}
	delete(c.gameHub, game)
}

// HighestCapacityHub returns the hub with the greatest effective capacity,
// whether or not it is nonzero (used when no hub currently has room but
// the host must still pick a least-bad candidate).
func (c *GameHubsCache) HighestCapacityHub() (ids.HubId, *HubRecord, bool) {
	var bestID ids.HubId
	var best *HubRecord
	bestCap := -1 << 31
	for id, h := range c.hubs {
		if eff := h.EffectiveCapacity(); best == nil || eff > bestCap {
			bestID, best, bestCap = id, h, eff
		}
	}
	return bestID, best, best != nil
}

// HighestNonzeroCapacityHub is HighestCapacityHub restricted to hubs that
// can currently accept at least one more game.
func (c *GameHubsCache) HighestNonzeroCapacityHub() (ids.HubId, *HubRecord, bool) {
	id, h, ok := c.HighestCapacityHub()
	if !ok || h.EffectiveCapacity() <= 0 {
		return ids.HubId{}, nil, false
	}
	return id, h, true
}

// Get returns a hub's record by id.
func (c *GameHubsCache) Get(id ids.HubId) (*HubRecord, bool) {
	h, ok := c.hubs[id]
	return h, ok
}
