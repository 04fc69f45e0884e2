package config

import "github.com/spf13/cobra"

// NewClientFwCommand builds the cobra command for cmd/clientinstance. The
// server connect token and start info arrive via -T/-S per spec.md §6's
// CLI surface, parsed by the caller; this command only handles tick-loop
// and reconnect tuning shared across every launched client instance.
func NewClientFwCommand(run func(*cobra.Command, ClientFwConfig, string, string) error) *cobra.Command {
	cfg := defaultClientFwConfig()
	var tokenJSON, startInfoJSON string

	cmd := &cobra.Command{
		Use:           "clientinstance",
		Short:         "Runs one supervised game client instance.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, tokenJSON, startInfoJSON)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&tokenJSON, "connect-token", "T", "", "JSON-serialized ServerConnectToken (required)")
	fs.StringVarP(&startInfoJSON, "start-info", "S", "", "JSON-serialized GameStartInfo (required)")
	fs.Uint32Var(&cfg.TicksPerSec, "ticks-per-sec", cfg.TicksPerSec, "frame tick rate in Hz (env: ARENACLIENT_TICKS_PER_SEC)")
	fs.Uint32Var(&cfg.ReconnectIntervalSecs, "reconnect-interval-secs", cfg.ReconnectIntervalSecs, "seconds between reconnect attempts after a disconnect (env: ARENACLIENT_RECONNECT_INTERVAL_SECS)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug-level logging (env: ARENACLIENT_VERBOSE)")

	_ = bindFlags(fs, "ARENACLIENT")

	_ = cmd.MarkFlagRequired("connect-token")
	_ = cmd.MarkFlagRequired("start-info")

	return cmd
}
