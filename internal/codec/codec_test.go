package codec

import (
	"testing"

	"github.com/arenahost/backend/internal/ids"
	"github.com/stretchr/testify/require"
)

type pingTestMsg struct {
	ClientTsNs int64
}

func (pingTestMsg) ChannelKind() ChannelKind { return Unordered }

func init() {
	Register(pingTestMsg{})
}

func TestRoundTrip(t *testing.T) {
	msg := pingTestMsg{ClientTsNs: 123456789}
	frame, kind, err := Encode(LayerCore, ids.Tick(42), msg)
	require.NoError(t, err)
	require.Equal(t, Unordered, kind)

	env, decoded, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, LayerCore, env.Layer)
	require.Equal(t, ids.Tick(42), env.Tick)
	require.Equal(t, msg, decoded)
	require.Equal(t, kind, decoded.ChannelKind())
}

func TestValidateChannelMismatch(t *testing.T) {
	msg := pingTestMsg{}
	require.True(t, ValidateChannel(msg, Unordered))
	require.False(t, ValidateChannel(msg, Ordered))
}
