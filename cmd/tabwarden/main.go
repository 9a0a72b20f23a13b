package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tabwarden/internal/config"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tabwarden",
	Short: "tabwarden - background tab CPU and JS execution governor",
	Long: `tabwarden keeps browser tabs honest about the CPU they burn.

It watches user intent (input recency), system memory pressure, and
per-tab lifecycle state, derives an execution budget for every open tab,
and pushes the result to an engine adapter: a structured log, or a live
Chromium instance over the DevTools protocol.

Run without arguments to start the interactive governor dashboard.`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the interactive governor
		return runGovernor()
	},
}

// buildLogger configures zap from the loaded config. The interactive
// dashboard owns the terminal, so its logs go to a file instead of stderr.
func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	sink := cfg.Logging.File
	if sink == "" && isInteractive(cmd) {
		sink = "tabwarden.log"
	}
	if sink != "" {
		zcfg.OutputPaths = []string{sink}
		zcfg.ErrorOutputPaths = []string{sink}
	}

	return zcfg.Build()
}

func isInteractive(cmd *cobra.Command) bool {
	return cmd.Name() == rootCmd.Name() || cmd.Name() == "run"
}

func init() {
	// Assigned here rather than in the rootCmd literal: the closure calls
	// buildLogger -> isInteractive, which reads rootCmd, and that reference
	// inside the literal is an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = buildLogger(cmd)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "tabwarden.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands to root
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pressureCmd)
	rootCmd.AddCommand(policyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
