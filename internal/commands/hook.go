package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/hook"
	"github.com/lindwerg/taskgate/internal/sprint"
	"github.com/lindwerg/taskgate/internal/verify"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Claude Code hook handlers",
	Long:  "Each subcommand reads one hook event as JSON on stdin and writes one verdict as JSON on stdout. Handlers never fail the hook: errors become a continue verdict.",
}

// hookHandler decides the verdict for one event.
type hookHandler func(ctx context.Context, cfg *config.Config, in *hook.Input, logger *slog.Logger) hook.Output

// hookOptions configures how an event is read before the handler runs.
type hookOptions struct {
	// requireInput makes unparsable stdin a plain continue. Otherwise the
	// handler runs with an empty event.
	requireInput bool
	handle       hookHandler
}

func newHookCmd(use, short string, opts hookOptions) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := runHook(cmd, opts)
			if err := hook.Write(cmd.OutOrStdout(), out); err != nil {
				slog.Error("failed to write hook verdict", "error", err)
			}
			return nil
		},
	}
}

func runHook(cmd *cobra.Command, opts hookOptions) hook.Output {
	logger := slog.Default().With("hook", cmd.Name(), "invocation", uuid.NewString())

	in, err := hook.ReadInput(cmd.InOrStdin())
	if err != nil {
		if opts.requireInput {
			logger.Warn("unreadable hook input", "error", err)
			return hook.Continue()
		}
		in = &hook.Input{}
	}
	if in.SessionID != "" {
		logger = logger.With("session", in.SessionID)
	}

	cfg, err := config.Load(config.Options{ProjectDir: projectDirFlag, EventCwd: in.Cwd})
	if err != nil {
		logger.Warn("invalid configuration", "error", err)
		return hook.ContinueWith("⚠️ invalid taskgate configuration: " + err.Error())
	}
	for _, w := range cfg.Warnings {
		logger.Warn("invalid configuration", "error", w)
	}
	logger.Debug("hook event", "tool", in.ToolName, "project", cfg.ProjectDir)
	return opts.handle(cmd.Context(), cfg, in, logger)
}

var hookVerifyTaskCmd = newHookCmd("verify-task", "Verify the current task after a Write or Edit (PostToolUse)", hookOptions{
	requireInput: true,
	handle: func(ctx context.Context, cfg *config.Config, in *hook.Input, logger *slog.Logger) hook.Output {
		return verify.New(cfg, verify.WithLogger(logger)).Handle(ctx, in)
	},
})

var hookSprintCompleteCmd = newHookCmd("sprint-complete", "Archive the sprint once every task is done (Stop)", hookOptions{
	handle: func(ctx context.Context, cfg *config.Config, in *hook.Input, logger *slog.Logger) hook.Output {
		return sprint.NewCompleter(cfg, nil, logger).Handle(ctx)
	},
})

var hookEnforceValidationCmd = newHookCmd("enforce-validation", "Block new work while a finished sprint awaits validation (PreToolUse)", hookOptions{
	handle: func(ctx context.Context, cfg *config.Config, in *hook.Input, logger *slog.Logger) hook.Output {
		return sprint.Enforce(cfg)
	},
})

var hookCleanupValidationCmd = newHookCmd("cleanup-validation", "Clear the validation marker when a new task queue is written (PostToolUse)", hookOptions{
	requireInput: true,
	handle: func(ctx context.Context, cfg *config.Config, in *hook.Input, logger *slog.Logger) hook.Output {
		return sprint.Cleanup(cfg, in, logger)
	},
})

func init() {
	hookCmd.AddCommand(hookVerifyTaskCmd)
	hookCmd.AddCommand(hookSprintCompleteCmd)
	hookCmd.AddCommand(hookEnforceValidationCmd)
	hookCmd.AddCommand(hookCleanupValidationCmd)
}
