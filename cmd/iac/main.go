package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/iac/internal/config"
	"github.com/nvandessel/iac/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "iac",
		Short: "Interactive activation and competition networks",
		Long: `iac runs interactive activation and competition (IAC) networks.

Nodes excite their neighbors and inhibit the other members of their
category block. Probing a node and letting the network settle retrieves
the properties that go with it, as in McClelland's Jets and Sharks model.`,
		SilenceUsage: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newImportCmd(),
		newListCmd(),
		newDeleteCmd(),
		newValidateCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// addGlobalFlags registers the persistent flags shared by every command.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	cmd.PersistentFlags().String("root", ".", "Project root directory (networks are stored in <root>/.iac)")
	cmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace (default from config)")
	cmd.PersistentFlags().String("config", "", "Config file (default ~/.iac/config.yaml)")
}

// loadConfig loads the effective configuration for cmd: defaults, then the
// config file, then the environment, then --log-level.
func loadConfig(cmd *cobra.Command) (*config.IACConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns the operational logger for cmd, writing to stderr.
func newLogger(cmd *cobra.Command, cfg *config.IACConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// commandContext returns the context cmd was executed with.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
