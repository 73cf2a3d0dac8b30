package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lorenzotomasdiez/werewolf/internal/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:          "werewolf",
		Short:        "Game master for Werewolf games played by remote agents",
		Long:         "Runs Werewolf (Mafia) games between player agents reachable over HTTP: assigns roles, narrates nights and days, schedules who speaks and tallies the votes.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().String("env-file", ".env", "Optional .env file to load")
	root.PersistentFlags().String("roster", "", "Players YAML file (overrides WEREWOLF_ROSTER)")
	root.PersistentFlags().String("output-dir", "", "Output directory for game records (overrides WEREWOLF_OUTPUT_DIR)")
	root.PersistentFlags().Duration("timeout", 0, "Per-call agent timeout (overrides WEREWOLF_CALL_TIMEOUT)")
	root.PersistentFlags().Int64("seed", 0, "Random seed, 0 for a time based seed (overrides WEREWOLF_SEED)")
	root.PersistentFlags().String("spectator-addr", "", "Serve the spectator feed on this address (overrides WEREWOLF_SPECTATOR_ADDR)")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(newPlayCmd(a))
	root.AddCommand(newAgentCmd(a))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if flags.Changed("roster") {
		cfg.RosterPath, _ = flags.GetString("roster")
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("timeout") {
		cfg.CallTimeout, _ = flags.GetDuration("timeout")
		if cfg.CallTimeout <= 0 {
			return fmt.Errorf("timeout must be > 0, got %s", cfg.CallTimeout)
		}
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("spectator-addr") {
		cfg.SpectatorAddr, _ = flags.GetString("spectator-addr")
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	verbose, _ := flags.GetBool("verbose")
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// rng derives a random source from the configured seed, offset so that
// several sources built from one seed differ.
func (a *app) rng(offset uint64) *rand.Rand {
	seed := uint64(a.cfg.Seed)
	return rand.New(rand.NewPCG(seed, seed+offset))
}
