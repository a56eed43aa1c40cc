package commands

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lindwerg/taskgate/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "taskgate",
	Short:         "Sprint task-queue hooks for Claude Code",
	Long:          "Taskgate verifies and completes tasks of a .bmad/task-queue.yaml sprint as Claude Code writes files, and archives the sprint when every task is done.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(newLogger(cmd.ErrOrStderr()))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDirFlag, "project-dir", "", "Project root (defaults to $"+config.EnvProjectDir+", then the hook event cwd, then the working directory)")

	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(mcpCmd)
}

// projectDirFlag holds the --project-dir flag value.
var projectDirFlag string

// newLogger writes JSON records to w. Stdout carries the hook verdict, so
// callers pass stderr.
func newLogger(w io.Writer) *slog.Logger {
	level, err := config.LogLevel()
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	if err != nil {
		logger.Warn("invalid log level, using default", "error", err)
	}
	return logger
}
