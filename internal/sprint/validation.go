package sprint

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/hook"
)

const validationRequiredMessage = "\n" + rule + `
⚠️  SPRINT VALIDATION REQUIRED
` + rule + `

Sprint completed but not validated yet.

📋 REQUIRED ACTION:
   Run /validate-sprint to:
   1. Test the application manually
   2. Generate task-queue.yaml for next sprint
   3. Unlock Ralph Loop

⛔ Ralph Loop is BLOCKED until validation completes
` + rule + "\n"

const validationCompletedMessage = "\n" + rule + `
✅ SPRINT VALIDATION COMPLETED
` + rule + `

task-queue.yaml generated successfully.
Validation marker removed.

🚀 Ralph Loop is now UNLOCKED and ready to continue.
` + rule + "\n"

// Enforce blocks spawning new work while a finished sprint awaits validation.
func Enforce(cfg *config.Config) hook.Output {
	if !cfg.ValidationPending() {
		return hook.Continue()
	}
	return hook.Block(validationRequiredMessage)
}

// Cleanup clears the validation marker once a new task queue has been written.
func Cleanup(cfg *config.Config, in *hook.Input, logger *slog.Logger) hook.Output {
	if !strings.HasSuffix(in.FilePath(), "task-queue.yaml") {
		return hook.Continue()
	}
	if !cfg.ValidationPending() {
		return hook.Continue()
	}
	if err := os.Remove(cfg.ValidationMarkerPath()); err != nil && !os.IsNotExist(err) {
		if logger != nil {
			logger.Warn("failed to remove validation marker", "error", err)
		}
		return hook.Continue()
	}
	return hook.ContinueWith(validationCompletedMessage)
}
