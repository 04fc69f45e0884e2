package hostcache

import (
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/ticksweep"
)

// GameHubDisconnectBufferConfig configures how long a disconnected hub's
// games are held in limbo before the hub is unregistered and its games
// aborted (spec.md §4.14, two-phase hub disconnect).
type GameHubDisconnectBufferConfig struct {
	ExpiryDuration time.Duration
}

// GameHubDisconnectBuffer is the "single subtlest piece of cross-cache
// state in the host server" (spec.md §4.14): a hub whose transport drops
// is not immediately unregistered from GameHubsCache, since its games are
// still running and a reconnect within the TTL should not disrupt them.
// Only once the TTL expires does the host unregister the hub and abort
// every game it held.
//
// Swept per host tick by DrainExpired, reusing the same ticksweep helper
// every other TTL cache in this package uses (SPEC_FULL.md §4).
type GameHubDisconnectBuffer struct {
	cfg        GameHubDisconnectBufferConfig
	insertedAt map[ids.HubId]time.Time
}

func NewGameHubDisconnectBuffer(cfg GameHubDisconnectBufferConfig) *GameHubDisconnectBuffer {
	return &GameHubDisconnectBuffer{
		cfg:        cfg,
		insertedAt: make(map[ids.HubId]time.Time),
	}
}

// Insert records hub id as disconnected as of now. The caller is
// responsible for leaving the hub's record (capacity, pending/running
// games) intact in GameHubsCache — this buffer only tracks the TTL clock.
func (b *GameHubDisconnectBuffer) Insert(id ids.HubId, now time.Time) {
	b.insertedAt[id] = now
}

// Restore removes hub id from the buffer, e.g. on a reconnect observed
// before the TTL expired. Reports whether the hub was actually buffered.
func (b *GameHubDisconnectBuffer) Restore(id ids.HubId) bool {
	if _, ok := b.insertedAt[id]; !ok {
		return false
	}
	delete(b.insertedAt, id)
	return true
}

// DrainExpired removes and returns every hub id that has sat disconnected
// past ExpiryDuration as of now. The caller must unregister each from
// GameHubsCache and abort its games.
func (b *GameHubDisconnectBuffer) DrainExpired(now time.Time) []ids.HubId {
	expired := ticksweep.ExpiredKeys(b.insertedAt, b.cfg.ExpiryDuration, now)
	for _, id := range expired {
		delete(b.insertedAt, id)
	}
	return expired
}
