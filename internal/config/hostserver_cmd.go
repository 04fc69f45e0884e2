package config

import (
	"github.com/spf13/cobra"
)

// NewHostServerCommand builds the cobra command for cmd/hostserver. run is
// invoked with the fully populated config once flags/env are resolved.
func NewHostServerCommand(run func(*cobra.Command, HostServerConfig) error) *cobra.Command {
	cfg := defaultHostServerConfig()

	cmd := &cobra.Command{
		Use:           "hostserver",
		Short:         "Runs the arena host server: lobbies, matchmaking, and hub dispatch.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.Bind, "bind", cfg.Bind, "address to bind to (env: ARENAHOST_BIND)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on (env: ARENAHOST_PORT)")
	fs.BoolVar(&cfg.EnableCORS, "enable-cors", cfg.EnableCORS, "allow cross-origin websocket upgrades (env: ARENAHOST_ENABLE_CORS)")
	fs.Uint32Var(&cfg.TicksPerSec, "ticks-per-sec", cfg.TicksPerSec, "host tick rate in Hz (env: ARENAHOST_TICKS_PER_SEC)")
	fs.Uint16Var(&cfg.MaxLobbySearch, "max-lobby-search", cfg.MaxLobbySearch, "max lobbies returned per search page (env: ARENAHOST_MAX_LOBBY_SEARCH)")
	fs.DurationVar(&cfg.AckTimeout, "ack-timeout", cfg.AckTimeout, "time a launched lobby waits for every member's ack (env: ARENAHOST_ACK_TIMEOUT)")
	fs.DurationVar(&cfg.StartBuffer, "start-buffer", cfg.StartBuffer, "parsed but not applied: a game is dispatched to a hub as soon as the last member acks (env: ARENAHOST_START_BUFFER)")
	fs.DurationVar(&cfg.OngoingGameExpiry, "ongoing-game-expiry", cfg.OngoingGameExpiry, "lifetime of an ongoing game, counted from the hub's GameStart confirmation, after which it is swept and aborted (env: ARENAHOST_ONGOING_GAME_EXPIRY)")
	fs.DurationVar(&cfg.HubDisconnectExpiry, "hub-disconnect-expiry", cfg.HubDisconnectExpiry, "grace period a disconnected hub's games survive before being aborted (env: ARENAHOST_HUB_DISCONNECT_EXPIRY)")
	fs.StringVar(&cfg.TokenSigningKey, "token-signing-key", cfg.TokenSigningKey, "HMAC key used to mint connect tokens (env: ARENAHOST_TOKEN_SIGNING_KEY)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "connect token lifetime (env: ARENAHOST_TOKEN_TTL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug-level logging (env: ARENAHOST_VERBOSE)")

	_ = bindFlags(fs, "ARENAHOST")

	return cmd
}
