// Command adbssi runs a single instruction script against a fresh
// simulator and prints every dump() to stdout.
//
// Grounded on the teacher's platform/cmd/cli: a bare cobra root
// command whose RunE does the work and whose Execute() error becomes
// the process exit code.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/adbssi"
	"github.com/kartikbazzad/adbssi/internal/config"
	"github.com/kartikbazzad/adbssi/internal/logging"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagInitState string
	flagQuiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "adbssi <script>",
	Short: "Replicated multi-site transaction simulator under Serializable Snapshot Isolation",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	cfg := config.Defaults()
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", cfg.LogLevel, "DEBUG, INFO, WARN, or ERROR")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", cfg.LogFormat, "text or json")
	rootCmd.Flags().StringVar(&flagInitState, "init-state", "", "path to a JSON file overriding the default 10*N seed values")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress diagnostic logging, keep only dump() output")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// ADBSSI_LOG_LEVEL/ADBSSI_LOG_FORMAT, if set, win over the
	// corresponding flag: config.Load() already folded them into cfg,
	// so a flag only applies here when its env var was absent.
	if cmd.Flags().Changed("log-level") {
		if _, set := os.LookupEnv("ADBSSI_LOG_LEVEL"); !set {
			cfg.LogLevel = flagLogLevel
		}
	}
	if cmd.Flags().Changed("log-format") {
		if _, set := os.LookupEnv("ADBSSI_LOG_FORMAT"); !set {
			cfg.LogFormat = flagLogFormat
		}
	}
	if flagInitState != "" {
		cfg.InitStatePath = flagInitState
	}
	if flagQuiet {
		cfg.Quiet = true
	}

	level := cfg.LogLevel
	if cfg.Quiet {
		level = "ERROR"
	}
	logging.Init(logging.Config{Level: level, Format: cfg.LogFormat})

	runCtx := logging.NewRunContext(context.Background())
	runLogger := logging.WithRunID(runCtx, logging.Get())

	scriptPath := args[0]
	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("adbssi: opening script: %w", err)
	}
	defer f.Close()

	sim := adbssi.New(adbssi.WithLogger(runLogger))

	if cfg.InitStatePath != "" {
		raw, err := os.ReadFile(cfg.InitStatePath)
		if err != nil {
			return fmt.Errorf("adbssi: reading init-state: %w", err)
		}
		if err := sim.Seed(raw); err != nil {
			return fmt.Errorf("adbssi: applying init-state: %w", err)
		}
	}

	return sim.Run(f, os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
