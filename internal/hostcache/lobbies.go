package hostcache

import (
	"errors"

	"github.com/arenahost/backend/internal/ids"
)

var (
	ErrLobbyRejected  = errors.New("hostcache: lobby rejected by checker")
	ErrLobbyExists    = errors.New("hostcache: lobby id already present")
	ErrLobbyNotFound  = errors.New("hostcache: lobby not found")
	ErrMemberRejected = errors.New("hostcache: new member rejected")
	ErrWrongPassword  = errors.New("hostcache: wrong password")
)

// LobbiesCacheConfig configures the lobbies cache, per spec.md §6.
type LobbiesCacheConfig struct {
	MaxRequestSize uint16
	Checker        LobbyChecker
}

// LobbiesCache stores lobbies in an ordered sequence, youngest-first, with
// an auxiliary id index for O(1) exact lookup (spec.md §4.8, and the
// original_source supplement noted in SPEC_FULL.md §4).
type LobbiesCache struct {
	cfg LobbiesCacheConfig

	order []ids.LobbyId          // youngest-first
	index map[ids.LobbyId]int    // id -> position in order
	store map[ids.LobbyId]*Lobby
}

func NewLobbiesCache(cfg LobbiesCacheConfig) *LobbiesCache {
	return &LobbiesCache{
		cfg:   cfg,
		index: make(map[ids.LobbyId]int),
		store: make(map[ids.LobbyId]*Lobby),
	}
}

// Insert adds a lobby if the configured LobbyChecker approves it.
func (c *LobbiesCache) Insert(l *Lobby) error {
	if _, exists := c.store[l.ID]; exists {
		return ErrLobbyExists
	}
	if c.cfg.Checker != nil {
		if err := c.cfg.Checker.CheckLobby(l); err != nil {
			return ErrLobbyRejected
		}
	}

	c.store[l.ID] = l
	c.order = append([]ids.LobbyId{l.ID}, c.order...)
	c.reindex()
	return nil
}

func (c *LobbiesCache) reindex() {
	for i, id := range c.order {
		c.index[id] = i
	}
}

// Remove deletes and returns a lobby by id.
func (c *LobbiesCache) Remove(id ids.LobbyId) (*Lobby, bool) {
	l, ok := c.store[id]
	if !ok {
		return nil, false
	}
	delete(c.store, id)
	pos, ok := c.index[id]
	if ok {
		c.order = append(c.order[:pos], c.order[pos+1:]...)
		delete(c.index, id)
		c.reindex()
	}
	return l, true
}

// LobbySearchRequest is one of the three ways to query the cache (spec.md
// §4.8, adopting the richer page-newer/page-older form per the Open
// Question resolution in §3/§9).
type LobbySearchRequest struct {
	Kind       SearchKind
	LobbyID    ids.LobbyId // Kind == SearchByID
	OldestID   ids.LobbyId // Kind == SearchPageNewer
	YoungestID ids.LobbyId // Kind == SearchPageOlder
	Num        uint16
}

type SearchKind int

const (
	SearchByID SearchKind = iota
	SearchPageNewer
	SearchPageOlder
)

// LobbySearchResult carries the matched window plus paging metadata.
type LobbySearchResult struct {
	Lobbies    []*Lobby
	NumYounger int
	Total      int
}

// Search resolves a LobbySearchRequest against the cache, clamping the
// requested window to MaxRequestSize.
func (c *LobbiesCache) Search(req LobbySearchRequest) LobbySearchResult {
	num := req.Num
	if c.cfg.MaxRequestSize > 0 && num > c.cfg.MaxRequestSize {
		num = c.cfg.MaxRequestSize
	}

	switch req.Kind {
	case SearchByID:
		l, ok := c.store[req.LobbyID]
		if !ok {
			return LobbySearchResult{Total: len(c.order)}
		}
		pos := c.index[req.LobbyID]
		return LobbySearchResult{Lobbies: []*Lobby{l}, NumYounger: pos, Total: len(c.order)}

	case SearchPageNewer:
		// youngest-first order: ids >= oldest_id occupy positions
		// [0, pos(oldest_id)]. "Newer" means smaller position.
		start := 0
		if pos, ok := c.index[req.OldestID]; ok {
			start = 0
			end := pos
			return c.window(start, end, int(num), true)
		}
		return c.window(0, len(c.order)-1, int(num), true)

	case SearchPageOlder:
		if pos, ok := c.index[req.YoungestID]; ok {
			return c.window(pos, len(c.order)-1, int(num), false)
		}
		return LobbySearchResult{Total: len(c.order)}

	default:
		return LobbySearchResult{Total: len(c.order)}
	}
}

// window returns up to num lobbies from order[start:end] inclusive,
// youngest-first, anchored at the appropriate end depending on direction.
func (c *LobbiesCache) window(start, end, num int, fromStart bool) LobbySearchResult {
	if start > end || start < 0 || end >= len(c.order) {
		return LobbySearchResult{Total: len(c.order)}
	}
	span := c.order[start : end+1]
	var picked []ids.LobbyId
	if fromStart {
		if num > 0 && num < len(span) {
			picked = span[:num]
		} else {
			picked = span
		}
	} else {
		if num > 0 && num < len(span) {
			picked = span[len(span)-num:]
		} else {
			picked = span
		}
	}

	result := make([]*Lobby, 0, len(picked))
	for _, id := range picked {
		result = append(result, c.store[id])
	}

	numYounger := start
	if len(picked) > 0 {
		numYounger = c.index[picked[0]]
	}

	return LobbySearchResult{Lobbies: result, NumYounger: numYounger, Total: len(c.order)}
}

// AddMember adds user to lobby id, subject to the checker and a byte-exact
// password comparison.
func (c *LobbiesCache) AddMember(id ids.LobbyId, user ids.UserId, member LobbyMember, password string) error {
	l, ok := c.store[id]
	if !ok {
		return ErrLobbyNotFound
	}
	if l.Password != password {
		return ErrWrongPassword
	}
	if c.cfg.Checker != nil {
		if err := c.cfg.Checker.AllowNewMember(l, user, member, password); err != nil {
			return ErrMemberRejected
		}
	}
	l.Members[user] = member
	return nil
}

// RemoveMember removes user from lobby id. isNowEmpty reports whether the
// lobby has no members left afterward; removed reports whether the user
// was actually present.
func (c *LobbiesCache) RemoveMember(id ids.LobbyId, user ids.UserId) (isNowEmpty bool, removed bool) {
	l, ok := c.store[id]
	if !ok {
		return false, false
	}
	if _, present := l.Members[user]; !present {
		return len(l.Members) == 0, false
	}
	delete(l.Members, user)
	return len(l.Members) == 0, true
}

// CanLaunch delegates to the configured LobbyChecker.
func (c *LobbiesCache) CanLaunch(id ids.LobbyId) bool {
	l, ok := c.store[id]
	if !ok {
		return false
	}
	if c.cfg.Checker == nil {
		return true
	}
	return c.cfg.Checker.CanLaunch(l)
}

// Get returns a lobby by id without removing it.
func (c *LobbiesCache) Get(id ids.LobbyId) (*Lobby, bool) {
	l, ok := c.store[id]
	return l, ok
}
