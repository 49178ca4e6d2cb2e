package main

import (
	"fmt"

	"github.com/nvandessel/iac/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve IAC runs to AI tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  iac_networks   list stored networks and built-in datasets
  iac_run        probe a network and return the settled activations
  iac_validate   check a network's structure

Calls are recorded in <root>/.iac/audit.jsonl. Logs go to stderr.

Example client configuration:
  {"mcpServers": {"iac": {"command": "iac", "args": ["mcp-server", "--root", "/path/to/project"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "iac",
				Version: version,
				Root:    root,
				Model:   cfg.Model,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("start MCP server: %w", err)
			}

			return server.Run(commandContext(cmd))
		},
	}
}
