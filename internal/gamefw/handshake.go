package gamefw

import (
	"github.com/arenahost/backend/internal/codec"
	"github.com/arenahost/backend/internal/ids"
)

// ClientHello is the first frame a client connection to a game instance
// must send, identifying which client slot it is attaching to. The instance
// never validates the connect token itself (internal/tokens: "hubs and
// game instances never validate these tokens themselves") — ClientID is
// trusted at the transport boundary, the same way hostproto's
// HostUserConnectMsg trusts a freshly-minted UserId.
type ClientHello struct {
	ClientID ids.ClientId
}

func (ClientHello) ChannelKind() codec.ChannelKind { return codec.Ordered }

func init() { codec.Register(ClientHello{}) }
