package hostcache

import (
	"errors"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/arenahost/backend/internal/ticksweep"
)

var (
	ErrPendingLobbyExists   = errors.New("hostcache: pending lobby already present")
	ErrPendingLobbyNotFound = errors.New("hostcache: pending lobby not found")
	ErrNotAMember           = errors.New("hostcache: user is not a member of the pending lobby")
)

// PendingLobbiesCacheConfig configures ack timeout behavior (spec.md §4.9).
type PendingLobbiesCacheConfig struct {
	AckTimeout time.Duration
}

// PendingLobbiesCache holds lobbies that have been launched and are
// awaiting an ack from every member before the host requests a hub.
// Entries older than AckTimeout are swept via DrainExpired, grounded on
// the shared ticksweep.ExpiredKeys routine.
type PendingLobbiesCache struct {
	cfg     PendingLobbiesCacheConfig
	entries map[ids.LobbyId]*PendingLobby
}

func NewPendingLobbiesCache(cfg PendingLobbiesCacheConfig) *PendingLobbiesCache {
	return &PendingLobbiesCache{
		cfg:     cfg,
		entries: make(map[ids.LobbyId]*PendingLobby),
	}
}

// Insert freezes lobby l into a pending entry born at now.
func (c *PendingLobbiesCache) Insert(l *Lobby, now time.Time) (*PendingLobby, error) {
	if _, exists := c.entries[l.ID]; exists {
		return nil, ErrPendingLobbyExists
	}
	p := &PendingLobby{
		Lobby: *l,
		Born:  now,
		Acked: make(map[ids.UserId]struct{}),
	}
	c.entries[l.ID] = p
	return p, nil
}

// Ack records that user has acknowledged pending lobby id.
func (c *PendingLobbiesCache) Ack(id ids.LobbyId, user ids.UserId) (*PendingLobby, error) {
	p, ok := c.entries[id]
	if !ok {
		return nil, ErrPendingLobbyNotFound
	}
	if _, member := p.Members[user]; !member {
		return nil, ErrNotAMember
	}
	p.Acked[user] = struct{}{}
	return p, nil
}

// Nack removes pending lobby id outright; any one member declining the
// launch aborts the whole pending lobby (spec.md §4.9).
func (c *PendingLobbiesCache) Nack(id ids.LobbyId) (*PendingLobby, bool) {
	p, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	delete(c.entries, id)
	return p, true
}

// ExtractIfAllAcked removes and returns pending lobby id if every member
// has acked; otherwise it leaves the entry untouched.
func (c *PendingLobbiesCache) ExtractIfAllAcked(id ids.LobbyId) (*PendingLobby, bool) {
	p, ok := c.entries[id]
	if !ok || !p.AllAcked() {
		return nil, false
	}
	delete(c.entries, id)
	return p, true
}

// Get returns a pending lobby without mutating the cache.
func (c *PendingLobbiesCache) Get(id ids.LobbyId) (*PendingLobby, bool) {
	p, ok := c.entries[id]
	return p, ok
}

// DrainExpired removes and returns every pending lobby older than
// AckTimeout as of now.
func (c *PendingLobbiesCache) DrainExpired(now time.Time) []*PendingLobby {
	born := make(map[ids.LobbyId]time.Time, len(c.entries))
	for id, p := range c.entries {
		born[id] = p.Born
	}
	expiredIDs := ticksweep.ExpiredKeys(born, c.cfg.AckTimeout, now)

	expired := make([]*PendingLobby, 0, len(expiredIDs))
	for _, id := range expiredIDs {
		expired = append(expired, c.entries[id])
		delete(c.entries, id)
	}
	return expired
}
