package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/taskqueue"
	"github.com/lindwerg/taskgate/internal/terminal"
)

// loadConfig resolves the project for a human-facing command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{ProjectDir: projectDirFlag})
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		slog.Warn("invalid configuration", "error", w)
	}
	return cfg, nil
}

// printQueueLoadError explains why the queue could not be read.
func printQueueLoadError(ui *terminal.UI, cfg *config.Config, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		ui.Info("No task queue at " + cfg.QueuePath() + ".")
	case errors.Is(err, taskqueue.ErrMalformed):
		ui.Error("Task queue is malformed: " + err.Error())
	default:
		ui.Error(err.Error())
	}
	slog.Debug("task queue load failed", "path", cfg.QueuePath(), "error", err)
}
