package sprint

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/gates"
	"github.com/lindwerg/taskgate/internal/hook"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

const doneQueue = `project: shop
sprint: 4
summary:
  completed_tasks: 2
current_task: null
quality_gates:
  - name: build
    command: make build
    required: true
  - name: lint
    command: make lint
    required: false
scratchpad:
  decisions: [use sqlite]
  learnings: [keep tasks small]
tasks:
  - id: T-1
    story_id: S-1
    title: API | routes
    status: done
    outputs: [api.go]
    receipt:
      work_summary: routes
      tests_passed: true
      commit_hash: aaa111
      duration_minutes: 30
  - id: T-2
    story_id: S-2
    title: UI
    status: done
    outputs: [ui.tsx]
    receipt:
      work_summary: ui
      tests_passed: true
      commit_hash: bbb222
      duration_minutes: 15
`

type stubRunner struct {
	fail map[string]bool
	ran  []string
}

func (s *stubRunner) Run(_ context.Context, _ string, command string, _ time.Duration) gates.Result {
	s.ran = append(s.ran, command)
	if s.fail[command] {
		return gates.Result{ExitCode: 1, Stderr: command + " failed"}
	}
	return gates.Result{}
}

func newTestConfig(t *testing.T, queue string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ProjectDir:  dir,
		BmadDir:     filepath.Join(dir, ".bmad"),
		GateTimeout: time.Minute,
		LockTimeout: time.Second,
	}
	require.NoError(t, os.MkdirAll(cfg.BmadDir, 0o755))
	if queue != "" {
		require.NoError(t, os.WriteFile(cfg.QueuePath(), []byte(queue), 0o644))
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompletionArchivesFinishedSprint(t *testing.T) {
	cfg := newTestConfig(t, doneQueue)
	runner := &stubRunner{fail: map[string]bool{"make lint": true}}
	c := NewCompleter(cfg, runner, quietLogger())
	c.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }

	out := c.Handle(context.Background())
	require.Equal(t, hook.ResultBlock, out.Result)
	require.Contains(t, out.Message, "SPRINT 4 COMPLETED")
	require.Contains(t, out.Message, "Archived to: .bmad/history/sprint-4/")
	require.Contains(t, out.Message, "Quality gates: PASSED")
	require.Contains(t, out.Message, "task-queue.yaml for Sprint 5")
	require.Equal(t, []string{"make build", "make lint"}, runner.ran)

	dir := filepath.Join(cfg.HistoryDir(), "sprint-4")
	archived, err := os.ReadFile(filepath.Join(dir, "task-queue.yaml"))
	require.NoError(t, err)
	require.Equal(t, doneQueue, string(archived))

	commits, err := os.ReadFile(filepath.Join(dir, "commits.log"))
	require.NoError(t, err)
	require.Equal(t, "aaa111\nbbb222", string(commits))

	var report gates.Report
	data, err := os.ReadFile(filepath.Join(dir, "quality-report.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	require.True(t, report.AllPassed)
	require.Len(t, report.Gates, 2)
	require.False(t, report.Gates[1].Passed)

	review, err := os.ReadFile(filepath.Join(dir, "sprint-review.md"))
	require.NoError(t, err)
	require.Contains(t, string(review), "# Sprint 4 Review: shop")
	require.Contains(t, string(review), "Total duration: 45 minutes")
	require.Contains(t, string(review), `API \| routes`)
	require.Contains(t, string(review), "- use sqlite")

	marker, err := os.ReadFile(cfg.ValidationMarkerPath())
	require.NoError(t, err)
	require.Equal(t, "2026-10-17T12:00:00Z", string(marker))

	// Archived once: the next Stop continues.
	runner.ran = nil
	require.Equal(t, hook.Continue(), c.Handle(context.Background()))
	require.Empty(t, runner.ran)
}

func TestCompletionReportsFailedRequiredGate(t *testing.T) {
	cfg := newTestConfig(t, doneQueue)
	c := NewCompleter(cfg, &stubRunner{fail: map[string]bool{"make build": true}}, quietLogger())

	out := c.Handle(context.Background())
	require.Equal(t, hook.ResultBlock, out.Result)
	require.Contains(t, out.Message, "Quality gates: FAILED")
}

func TestCompletionContinuesWhileWorkRemains(t *testing.T) {
	cfg := newTestConfig(t, strings.Replace(doneQueue, "    title: UI\n    status: done", "    title: UI\n    status: in_progress", 1))
	runner := &stubRunner{}
	out := NewCompleter(cfg, runner, quietLogger()).Handle(context.Background())
	require.Equal(t, hook.Continue(), out)
	require.Empty(t, runner.ran)
	require.NoDirExists(t, cfg.HistoryDir())
	require.False(t, cfg.ValidationPending())
}

func TestCompletionWithoutQueueOrBrokenQueue(t *testing.T) {
	cfg := newTestConfig(t, "")
	require.Equal(t, hook.Continue(), NewCompleter(cfg, &stubRunner{}, quietLogger()).Handle(context.Background()))

	cfg = newTestConfig(t, "tasks: {")
	require.Equal(t, hook.Continue(), NewCompleter(cfg, &stubRunner{}, quietLogger()).Handle(context.Background()))
}

func TestEnforce(t *testing.T) {
	cfg := newTestConfig(t, doneQueue)
	require.Equal(t, hook.Continue(), Enforce(cfg))

	require.NoError(t, os.WriteFile(cfg.ValidationMarkerPath(), []byte("x"), 0o644))
	out := Enforce(cfg)
	require.Equal(t, hook.ResultBlock, out.Result)
	require.Contains(t, out.Message, "SPRINT VALIDATION REQUIRED")
}

func TestCleanup(t *testing.T) {
	cfg := newTestConfig(t, doneQueue)
	input := func(path string) *hook.Input {
		in, err := hook.ReadInput(strings.NewReader(`{"tool_name":"Write","tool_input":{"file_path":"` + path + `"}}`))
		require.NoError(t, err)
		return in
	}

	// No marker: nothing to do.
	require.Equal(t, hook.Continue(), Cleanup(cfg, input(cfg.QueuePath()), quietLogger()))

	require.NoError(t, os.WriteFile(cfg.ValidationMarkerPath(), []byte("x"), 0o644))

	// Unrelated file keeps the marker.
	require.Equal(t, hook.Continue(), Cleanup(cfg, input("src/app.ts"), quietLogger()))
	require.True(t, cfg.ValidationPending())

	out := Cleanup(cfg, input(cfg.QueuePath()), quietLogger())
	require.Equal(t, hook.ResultContinue, out.Result)
	require.Contains(t, out.Message, "SPRINT VALIDATION COMPLETED")
	require.False(t, cfg.ValidationPending())
}

func TestReviewWithoutProjectOrReceipts(t *testing.T) {
	q := &taskqueue.Queue{
		Sprint: 1,
		Tasks:  []taskqueue.Task{{ID: "A", Title: "one", Status: taskqueue.StatusDone}},
	}
	review := Review(q, gates.Report{AllPassed: true}, time.Unix(0, 0))
	require.Contains(t, review, "# Sprint 1 Review\n")
	require.Contains(t, review, "### (no story) (1/1)")
	require.NotContains(t, review, "Total duration")
	require.NotContains(t, review, "## Quality Gates")
	require.NotContains(t, review, "## Learnings")
}
