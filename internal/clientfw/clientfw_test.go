package clientfw

import (
	"testing"

	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/gamefw"
	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

type domainMsg struct{ N int }

func (domainMsg) ChannelKind() codec.ChannelKind { return codec.Ordered }

func init() { codec.Register(domainMsg{}) }

func newConnected(t *testing.T) *ClientFw {
	t.Helper()
	c, err := New(Config{TicksPerSec: 30, ClientId: 1}, nil, nil)
	require.NoError(t, err)
	c.OnConnEvent(EventConnectAttemptStarted)
	c.OnConnEvent(EventConnected)
	require.Equal(t, Syncing, c.State())
	return c
}

func TestRequestsDroppedBeforeSyncing(t *testing.T) {
	c, err := New(Config{TicksPerSec: 30, ClientId: 1}, nil, nil)
	require.NoError(t, err)
	c.EnqueueRequest(domainMsg{N: 1})
	_, reqs := c.Tick()
	require.Empty(t, reqs)
}

func TestSyncingBuffersUntilInit(t *testing.T) {
	var received []int
	c := newConnected(t)
	c.handler = func(_ codec.Layer, msg codec.Tagged) {
		received = append(received, msg.(domainMsg).N)
	}

	c.OnMessage(codec.LayerCore, domainMsg{N: 1})
	c.OnMessage(codec.LayerCore, domainMsg{N: 2})
	require.Empty(t, received, "messages must stay buffered during Syncing")

	c.OnConnEvent(EventFirstReplicationMessage)
	require.Equal(t, Init, c.State())
	require.Equal(t, []int{1, 2}, received)
}

func TestServerStateIgnoredUntilLocalInitDone(t *testing.T) {
	c := newConnected(t)
	c.OnConnEvent(EventFirstReplicationMessage)
	require.Equal(t, Init, c.State())

	c.OnMessage(codec.LayerFramework, CurrentState{Server: gamefw.Game})
	require.Equal(t, Init, c.State(), "must ignore server state changes before local init is done")

	c.SetInitDone()
	c.OnMessage(codec.LayerFramework, CurrentState{Server: gamefw.Game})
	require.Equal(t, Game, c.State())
}

func TestDisconnectResetsToSetup(t *testing.T) {
	c := newConnected(t)
	c.OnConnEvent(EventFirstReplicationMessage)
	c.SetInitDone()
	c.OnMessage(codec.LayerFramework, CurrentState{Server: gamefw.Game})
	require.Equal(t, Game, c.State())

	c.OnConnEvent(EventDisconnected)
	require.Equal(t, Setup, c.State())
}

func TestInitProgressSentOnceWhenChanged(t *testing.T) {
	c := newConnected(t)
	c.SetProgress(0.5)
	progress, _ := c.Tick()
	require.NotNil(t, progress)
	require.Equal(t, float32(0.5), progress.Progress)

	progress, _ = c.Tick()
	require.Nil(t, progress, "unchanged progress must not be resent")
}

func TestTicksPerSecValidation(t *testing.T) {
	_, err := New(Config{TicksPerSec: 0, ClientId: ids.ClientId(1)}, nil, nil)
	require.Error(t, err)
}
