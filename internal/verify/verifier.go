// Package verify decides, one write/edit event at a time, whether the active
// task of the sprint queue is finished and, if so, marks it done.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/gates"
	"github.com/lindwerg/taskgate/internal/hook"
	"github.com/lindwerg/taskgate/internal/outputs"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

// Verifier evaluates events against the task queue of one project.
type Verifier struct {
	cfg      *config.Config
	store    *taskqueue.Store
	resolver *outputs.Resolver
	runner   gates.Runner
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithRunner replaces the gate runner.
func WithRunner(r gates.Runner) Option {
	return func(v *Verifier) { v.runner = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger sets the logger for absorbed failures.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// New creates a Verifier for cfg's project.
func New(cfg *config.Config, opts ...Option) *Verifier {
	v := &Verifier{
		cfg:      cfg,
		store:    taskqueue.NewStore(cfg.QueuePath(), cfg.LockPath(), cfg.LockTimeout),
		resolver: outputs.NewResolver(cfg.ProjectDir),
		runner:   gates.NewShellRunner(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Handle runs the full verification pipeline for one event. It always returns
// a continue verdict; every failure is reported as a message.
func (v *Verifier) Handle(ctx context.Context, in *hook.Input) hook.Output {
	if !in.IsWriteOrEdit() {
		return hook.Continue()
	}
	if !v.cfg.SessionActive() || !v.store.Exists() {
		return hook.Continue()
	}

	doc, err := v.store.Load()
	if err != nil {
		v.logger.Warn("task queue unreadable", "path", v.store.Path(), "error", err)
		return hook.ContinueWith(malformedMessage(err))
	}

	task, ok := doc.CurrentTask()
	if !ok {
		return hook.Continue()
	}

	filePath := in.FilePath()
	if filePath == "" {
		return hook.Continue()
	}
	rel := outputs.RelPath(v.cfg.ProjectDir, filePath)
	if !outputs.MatchesAny(rel, filePath, task.Outputs) {
		return hook.Continue()
	}

	report := v.resolver.Check(task.Outputs)
	if !report.Complete() {
		return hook.ContinueWith(progressMessage(rel, report))
	}

	queue := doc.Queue()
	outcome := gates.Evaluate(ctx, v.runner, queue.QualityGates, v.cfg.ProjectDir, v.cfg.GateTimeout)
	if !outcome.Passed {
		v.logger.Warn("quality gate failed", "task", task.ID, "gate", outcome.Failed)
		return hook.ContinueWith(gateFailureMessage(outcome))
	}

	now := v.now()
	if _, err := v.store.Complete(ctx, task.ID, now); err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotCurrent) {
			v.logger.Info("task already completed elsewhere", "task", task.ID)
			return hook.Continue()
		}
		v.logger.Error("failed to persist task completion", "task", task.ID, "error", err)
		return hook.ContinueWith(persistFailureMessage())
	}

	v.logger.Info("task completed", "task", task.ID)
	return hook.ContinueWith(successMessage(task, report, outcome, queue.QualityGates, now))
}
