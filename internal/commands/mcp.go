package commands

import (
	"github.com/spf13/cobra"

	"github.com/lindwerg/taskgate/internal/queueserver"
)

var mcpCmd = &cobra.Command{
	Use:    "mcp",
	Short:  "Run MCP servers (used internally by Claude Code)",
	Hidden: true,
}

var mcpTaskQueueCmd = &cobra.Command{
	Use:   "taskqueue",
	Short: "Run the task queue MCP server",
	Long:  "Starts the task queue MCP server over stdio. Used by Claude Code to inspect the sprint queue and check task outputs via typed tool calls.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return queueserver.Run(cmd.Context(), cfg, Version)
	},
}

func init() {
	mcpCmd.AddCommand(mcpTaskQueueCmd)
}
