package hostcache

import (
	"errors"

	"github.com/arenahost/backend/internal/ids"
)

var ErrUserNotFound = errors.New("hostcache: user not found")

// UsersCache tracks every connected user's connection type and current
// state machine position (spec.md §4.11). Unlike the lobby and game
// caches, entries here live for the lifetime of the connection, not a TTL.
type UsersCache struct {
	users map[ids.UserId]*UserInfo
}

func NewUsersCache() *UsersCache {
	return &UsersCache{users: make(map[ids.UserId]*UserInfo)}
}

// Insert registers a newly connected user as Idle.
func (c *UsersCache) Insert(user ids.UserId, conn ids.ConnectionType) {
	c.users[user] = &UserInfo{
		Connection: conn,
		State:      UserState{Kind: Idle},
	}
}

// Remove deregisters a disconnected user.
func (c *UsersCache) Remove(user ids.UserId) (*UserInfo, bool) {
	info, ok := c.users[user]
	if !ok {
		return nil, false
	}
	delete(c.users, user)
	return info, true
}

// Get returns a user's current info.
func (c *UsersCache) Get(user ids.UserId) (*UserInfo, bool) {
	info, ok := c.users[user]
	return info, ok
}

// UpdateState overwrites a single user's state, enforcing mutual
// exclusivity of Idle/InLobby/InPendingLobby/InGame (spec.md §4.11).
func (c *UsersCache) UpdateState(user ids.UserId, state UserState) error {
	info, ok := c.users[user]
	if !ok {
		return ErrUserNotFound
	}
	info.State = state
	return nil
}

// SetUserStates applies state to every user in users in one batch,
// skipping (without erroring) any user not present in the cache — used
// when a lobby transitions as a whole and some members may have already
// disconnected.
func (c *UsersCache) SetUserStates(users []ids.UserId, state UserState) {
	for _, user := range users {
		if info, ok := c.users[user]; ok {
			info.State = state
		}
	}
}
