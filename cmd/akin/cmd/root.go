// Package cmd provides the CLI commands for akin.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/config"
	"github.com/vimo-dev/akin/internal/logging"
	"github.com/vimo-dev/akin/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the akin CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "akin",
		Short: "Find redundant and similar code across your codebase",
		Long: `akin extracts function-level code units from Rust, Swift,
TypeScript, and JavaScript source trees, embeds them as vectors, and
flags near-duplicate or semantically similar code - within a project or
across several.

Run 'akin index <path>' to build an index, then 'akin scan' to find
similar pairs, or wire 'akin hook' into your editor for real-time
duplicate detection as you write code.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("akin version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.vimo/akin/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newPairsCmd())
	cmd.AddCommand(newIgnoreCmd())
	cmd.AddCommand(newGroupCmd())
	cmd.AddCommand(newHookCmd())
	cmd.AddCommand(newArchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging always sets up structured file logging at the level
// configured in the user's akin config (server.log_level, default "info"),
// so every subcommand's activity is recorded even without --debug.
// --debug forces the level to debug for this invocation regardless of what
// the config file says.
func startLogging(cmd *cobra.Command, _ []string) error {
	level := ""
	if cfg, err := config.Load("."); err == nil {
		level = cfg.Server.LogLevel
	}

	logCfg := logging.FromLevel(level)
	if debugMode {
		logCfg.Level = "debug"
	}

	// index and scan can log one line per extracted unit; fsync-per-write
	// would measurably slow those runs, so only the low-volume commands
	// (notably the hook, whose log a developer may be tailing mid-edit)
	// keep it on.
	switch cmd.Name() {
	case "index", "scan":
		logCfg.ImmediateSync = false
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging configured", slog.String("level", logCfg.Level), slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command. Errors are printed as concise prose on
// stderr (with the structured code and hint when the error carries them)
// rather than cobra's default error-plus-usage dump.
func Execute() error {
	cmd := NewRootCmd()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, apperr.FormatForCLI(err))
	}
	return err
}
