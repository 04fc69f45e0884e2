package config

import "github.com/spf13/cobra"

// NewGameFwCommand builds the cobra command for cmd/gameinstance. The
// launch pack itself arrives via the -G flag per spec.md §6's CLI
// surface, parsed by the caller; this command only handles tick-loop
// tuning shared across every launched instance.
func NewGameFwCommand(run func(*cobra.Command, GameFwConfig, string) error) *cobra.Command {
	cfg := defaultGameFwConfig()
	var launchPackJSON string

	cmd := &cobra.Command{
		Use:           "gameinstance",
		Short:         "Runs one supervised game instance.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, launchPackJSON)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&launchPackJSON, "launch-pack", "G", "", "JSON-serialized GameLaunchPack (required)")
	fs.Uint32Var(&cfg.TicksPerSec, "ticks-per-sec", cfg.TicksPerSec, "simulation tick rate in Hz (env: ARENAGAME_TICKS_PER_SEC)")
	fs.Uint32Var(&cfg.MaxInitTicks, "max-init-ticks", cfg.MaxInitTicks, "ticks to wait for readiness before forcing Init->Game (env: ARENAGAME_MAX_INIT_TICKS)")
	fs.Uint32Var(&cfg.MaxEndTicks, "max-end-ticks", cfg.MaxEndTicks, "ticks to linger in End before shutdown, 0 for immediate (env: ARENAGAME_MAX_END_TICKS)")
	fs.Float32Var(&cfg.ReadinessThreshold, "readiness-threshold", cfg.ReadinessThreshold, "parsed but not read by the game instance: Init ends once mean readiness reaches 1.0 or max-init-ticks elapse (env: ARENAGAME_READINESS_THRESHOLD)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug-level logging (env: ARENAGAME_VERBOSE)")

	_ = bindFlags(fs, "ARENAGAME")

	_ = cmd.MarkFlagRequired("launch-pack")

	return cmd
}
