package config

import "github.com/spf13/cobra"

// NewGameHubServerCommand builds the cobra command for cmd/hubserver.
func NewGameHubServerCommand(run func(*cobra.Command, GameHubServerConfig) error) *cobra.Command {
	cfg := defaultGameHubServerConfig()

	cmd := &cobra.Command{
		Use:           "hubserver",
		Short:         "Runs a game hub: launches and supervises game instances for one host.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.HostAddr, "host-addr", cfg.HostAddr, "websocket URL of the host's hub endpoint (env: ARENAHUB_HOST_ADDR)")
	fs.IntVar(&cfg.MaxCapacity, "max-capacity", cfg.MaxCapacity, "maximum concurrent games this hub can run (env: ARENAHUB_MAX_CAPACITY)")
	fs.DurationVar(&cfg.LaunchTimeout, "launch-timeout", cfg.LaunchTimeout, "time a pending game may wait for its launch pack (env: ARENAHUB_LAUNCH_TIMEOUT)")
	fs.DurationVar(&cfg.KillGrace, "kill-grace", cfg.KillGrace, "grace period before hard-killing an aborted instance (env: ARENAHUB_KILL_GRACE)")
	fs.Uint32Var(&cfg.TicksPerSec, "ticks-per-sec", cfg.TicksPerSec, "hub tick rate in Hz (env: ARENAHUB_TICKS_PER_SEC)")
	fs.StringVar(&cfg.InstanceBin, "instance-bin", cfg.InstanceBin, "path to the gameinstance binary (env: ARENAHUB_INSTANCE_BIN)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug-level logging (env: ARENAHUB_VERBOSE)")

	_ = bindFlags(fs, "ARENAHUB")

	return cmd
}
