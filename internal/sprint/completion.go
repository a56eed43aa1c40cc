// Package sprint handles the end of a sprint: archiving a finished queue and
// holding the loop until the sprint has been validated by a human.
package sprint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/gates"
	"github.com/lindwerg/taskgate/internal/hook"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

// Completer archives a sprint once every task in the queue is done.
type Completer struct {
	cfg    *config.Config
	runner gates.Runner
	logger *slog.Logger
	now    func() time.Time
}

// NewCompleter creates a Completer. A nil runner uses the shell.
func NewCompleter(cfg *config.Config, runner gates.Runner, logger *slog.Logger) *Completer {
	if runner == nil {
		runner = gates.NewShellRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{cfg: cfg, runner: runner, logger: logger, now: time.Now}
}

// Archive is where a finished sprint was written.
type Archive struct {
	Dir    string
	Report gates.Report
}

// Handle is the Stop hook. It blocks exactly once per finished sprint: after
// archiving, the validation marker makes later calls continue.
func (c *Completer) Handle(ctx context.Context) hook.Output {
	store := taskqueue.NewStore(c.cfg.QueuePath(), c.cfg.LockPath(), c.cfg.LockTimeout)
	if !store.Exists() {
		return hook.Continue()
	}
	if c.cfg.ValidationPending() {
		return hook.Continue()
	}

	doc, err := store.Load()
	if err != nil {
		c.logger.Warn("task queue unreadable", "path", store.Path(), "error", err)
		return hook.Continue()
	}
	q := doc.Queue()
	if !taskqueue.AllDone(q.Tasks) {
		return hook.Continue()
	}

	archive, err := c.Archive(ctx, q)
	if err != nil {
		c.logger.Error("failed to archive sprint", "sprint", q.Sprint, "error", err)
		return hook.Continue()
	}
	if err := os.WriteFile(c.cfg.ValidationMarkerPath(), []byte(c.now().UTC().Format(time.RFC3339)), 0o644); err != nil {
		c.logger.Error("failed to write validation marker", "error", err)
		return hook.Continue()
	}

	c.logger.Info("sprint archived", "sprint", q.Sprint, "dir", archive.Dir)
	return hook.Block(completedMessage(q.Sprint, c.relative(archive.Dir), archive.Report.AllPassed))
}

// Archive writes the sprint's queue copy, review, quality report and commit
// log into history/sprint-<n>/.
func (c *Completer) Archive(ctx context.Context, q *taskqueue.Queue) (*Archive, error) {
	dir := filepath.Join(c.cfg.HistoryDir(), fmt.Sprintf("sprint-%d", q.Sprint))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	queueData, err := os.ReadFile(c.cfg.QueuePath())
	if err != nil {
		return nil, fmt.Errorf("failed to read task queue: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "task-queue.yaml"), queueData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to archive task queue: %w", err)
	}

	report := gates.RunAll(ctx, c.runner, q.QualityGates, c.cfg.ProjectDir, c.cfg.GateTimeout)
	reportData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quality report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "quality-report.json"), reportData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write quality report: %w", err)
	}

	review := Review(q, report, c.now())
	if err := os.WriteFile(filepath.Join(dir, "sprint-review.md"), []byte(review), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write sprint review: %w", err)
	}

	commits := strings.Join(taskqueue.Commits(q.Tasks), "\n")
	if err := os.WriteFile(filepath.Join(dir, "commits.log"), []byte(commits), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write commit log: %w", err)
	}

	return &Archive{Dir: dir, Report: report}, nil
}

func (c *Completer) relative(p string) string {
	if rel, err := filepath.Rel(c.cfg.ProjectDir, p); err == nil {
		return filepath.ToSlash(rel) + "/"
	}
	return p
}

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func completedMessage(sprint int, archiveDir string, gatesPassed bool) string {
	status := "PASSED"
	if !gatesPassed {
		status = "FAILED"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n🏁 SPRINT %d COMPLETED\n%s\n\n", rule, sprint, rule)
	b.WriteString("✅ All tasks completed\n")
	fmt.Fprintf(&b, "📦 Archived to: %s\n", archiveDir)
	fmt.Fprintf(&b, "🔍 Quality gates: %s\n\n", status)
	b.WriteString("📋 NEXT STEP: Run /validate-sprint to:\n")
	b.WriteString("   1. Test the application manually\n")
	fmt.Fprintf(&b, "   2. Generate task-queue.yaml for Sprint %d\n", sprint+1)
	b.WriteString("   3. Continue Ralph Loop automatically\n\n")
	b.WriteString("⚠️  Ralph Loop is BLOCKED until validation completes\n")
	b.WriteString(rule + "\n")
	return b.String()
}
