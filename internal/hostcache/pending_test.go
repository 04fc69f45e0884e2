package hostcache

import (
	"testing"
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestAllAckedExtractable(t *testing.T) {
	c := NewPendingLobbiesCache(PendingLobbiesCacheConfig{AckTimeout: time.Minute})
	u1, u2 := ids.NewUserId(), ids.NewUserId()
	l := newTestLobby(1, u1)
	l.Members[u1] = LobbyMember{}
	l.Members[u2] = LobbyMember{}

	now := time.Unix(0, 0)
	_, err := c.Insert(l, now)
	require.NoError(t, err)

	_, ok := c.ExtractIfAllAcked(1)
	require.False(t, ok, "nobody has acked yet")

	_, err = c.Ack(1, u1)
	require.NoError(t, err)
	_, ok = c.ExtractIfAllAcked(1)
	require.False(t, ok)

	_, err = c.Ack(1, u2)
	require.NoError(t, err)
	p, ok := c.ExtractIfAllAcked(1)
	require.True(t, ok)
	require.True(t, p.AllAcked())

	_, found := c.Get(1)
	require.False(t, found, "extracted entry must be removed")
}

func TestAckFromNonMemberRejected(t *testing.T) {
	c := NewPendingLobbiesCache(PendingLobbiesCacheConfig{AckTimeout: time.Minute})
	owner := ids.NewUserId()
	l := newTestLobby(1, owner)
	l.Members[owner] = LobbyMember{}
	_, err := c.Insert(l, time.Unix(0, 0))
	require.NoError(t, err)

	_, err = c.Ack(1, ids.NewUserId())
	require.ErrorIs(t, err, ErrNotAMember)
}

func TestDrainExpiredRemovesStaleEntries(t *testing.T) {
	c := NewPendingLobbiesCache(PendingLobbiesCacheConfig{AckTimeout: 10 * time.Second})
	l := newTestLobby(1, ids.NewUserId())
	born := time.Unix(0, 0)
	_, err := c.Insert(l, born)
	require.NoError(t, err)

	expired := c.DrainExpired(born.Add(5 * time.Second))
	require.Empty(t, expired)

	expired = c.DrainExpired(born.Add(11 * time.Second))
	require.Len(t, expired, 1)
	_, found := c.Get(1)
	require.False(t, found)
}

func TestNackRemovesEntry(t *testing.T) {
	c := NewPendingLobbiesCache(PendingLobbiesCacheConfig{AckTimeout: time.Minute})
	l := newTestLobby(1, ids.NewUserId())
	_, err := c.Insert(l, time.Unix(0, 0))
	require.NoError(t, err)

	_, ok := c.Nack(1)
	require.True(t, ok)
	_, found := c.Get(1)
	require.False(t, found)
}
