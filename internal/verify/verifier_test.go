package verify

import (
	"context"
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

const queueYAML = `sprint: 2
summary:
  total_tasks: 2
  completed_tasks: 0
current_task: T-1
quality_gates:
  - name: typecheck
    command: check-types
    required: true
  - name: tests
    command: run-tests
    required: true
  - name: lint
    command: run-lint
    required: false
tasks:
  - id: T-1
    title: Build bundle
    status: in_progress
    started_at: "2026-10-17T09:00:00Z"
    outputs:
      - dist/*.js
      - README.md
    retries: 0
    max_retries: 3
  - id: T-2
    title: Next
    status: pending
    outputs: [docs/index.md]
`

var fixedNow = time.Date(2026, 10, 17, 9, 25, 0, 0, time.UTC)

type recordingRunner struct {
	fail map[string]gates.Result
	ran  []string
}

func (r *recordingRunner) Run(_ context.Context, _ string, command string, _ time.Duration) gates.Result {
	r.ran = append(r.ran, command)
	if res, ok := r.fail[command]; ok {
		return res
	}
	return gates.Result{}
}

type fixture struct {
	dir    string
	cfg    *config.Config
	runner *recordingRunner
	v      *Verifier
}

func newFixture(t *testing.T, queue string, session bool) *fixture {
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
	if session {
		require.NoError(t, os.WriteFile(cfg.SessionMarkerPath(), nil, 0o644))
	}
	runner := &recordingRunner{fail: map[string]gates.Result{}}
	v := New(cfg,
		WithRunner(runner),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return &fixture{dir: dir, cfg: cfg, runner: runner, v: v}
}

func (f *fixture) touch(t *testing.T, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(f.dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func (f *fixture) event(tool, rel string) *hook.Input {
	payload := `{"tool_name":"` + tool + `","tool_input":{"file_path":"` + filepath.ToSlash(filepath.Join(f.dir, rel)) + `"}}`
	in, err := hook.ReadInput(strings.NewReader(payload))
	if err != nil {
		panic(err)
	}
	return in
}

func (f *fixture) queue(t *testing.T) *taskqueue.Queue {
	t.Helper()
	data, err := os.ReadFile(f.cfg.QueuePath())
	require.NoError(t, err)
	doc, err := taskqueue.Parse(data)
	require.NoError(t, err)
	return doc.Queue()
}

func (f *fixture) rawQueue(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.cfg.QueuePath())
	require.NoError(t, err)
	return string(data)
}

func TestIgnoresNonWriteTools(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js", "README.md")

	for _, tool := range []string{"Read", "Bash", "Task", ""} {
		out := f.v.Handle(context.Background(), f.event(tool, "dist/app.js"))
		require.Equal(t, hook.Continue(), out, tool)
	}
	require.Empty(t, f.runner.ran)
	require.Equal(t, queueYAML, f.rawQueue(t))
}

func TestNoSessionMarkerIsNoop(t *testing.T) {
	f := newFixture(t, queueYAML, false)
	f.touch(t, "dist/app.js", "README.md")

	out := f.v.Handle(context.Background(), f.event("Write", "dist/app.js"))
	require.Equal(t, hook.Continue(), out)
	require.Equal(t, queueYAML, f.rawQueue(t))
}

func TestNoQueueIsNoop(t *testing.T) {
	f := newFixture(t, "", true)
	out := f.v.Handle(context.Background(), f.event("Write", "dist/app.js"))
	require.Equal(t, hook.Continue(), out)
}

func TestMalformedQueueWarns(t *testing.T) {
	f := newFixture(t, "tasks: [\n", true)
	out := f.v.Handle(context.Background(), f.event("Write", "dist/app.js"))
	require.Equal(t, hook.ResultContinue, out.Result)
	require.Contains(t, out.Message, "Failed to parse task-queue.yaml")
	require.Equal(t, "tasks: [\n", f.rawQueue(t))
}

func TestNoCurrentTaskIsNoop(t *testing.T) {
	for name, q := range map[string]string{
		"null":     strings.Replace(queueYAML, "current_task: T-1", "current_task: null", 1),
		"dangling": strings.Replace(queueYAML, "current_task: T-1", "current_task: T-404", 1),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, q, true)
			f.touch(t, "dist/app.js", "README.md")
			out := f.v.Handle(context.Background(), f.event("Write", "dist/app.js"))
			require.Equal(t, hook.Continue(), out)
			require.Empty(t, f.runner.ran)
		})
	}
}

func TestUnrelatedWriteIsNoop(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js", "README.md", "src/app.js")

	out := f.v.Handle(context.Background(), f.event("Write", "src/app.js"))
	require.Equal(t, hook.Continue(), out)
	require.Empty(t, f.runner.ran)
	require.Equal(t, queueYAML, f.rawQueue(t))
}

func TestMissingFilePathIsNoop(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	in, err := hook.ReadInput(strings.NewReader(`{"tool_name":"Edit","tool_input":{}}`))
	require.NoError(t, err)
	require.Equal(t, hook.Continue(), f.v.Handle(context.Background(), in))
}

func TestIncompleteOutputsReportProgress(t *testing.T) {
	q := strings.Replace(queueYAML, "      - dist/*.js\n      - README.md\n", "      - out/a.txt\n      - out/b.txt\n", 1)
	f := newFixture(t, q, true)
	f.touch(t, "out/a.txt")

	out := f.v.Handle(context.Background(), f.event("Write", "out/a.txt"))
	require.Equal(t, hook.ResultContinue, out.Result)
	require.Contains(t, out.Message, "Output verified: out/a.txt")
	require.Contains(t, out.Message, "Progress: 1/2 outputs")
	require.Contains(t, out.Message, "Missing: out/b.txt")
	require.Empty(t, f.runner.ran)
	require.Equal(t, q, f.rawQueue(t))

	// Same tree, same answer.
	again := f.v.Handle(context.Background(), f.event("Write", "out/a.txt"))
	require.Equal(t, out, again)
}

func TestGateFailureShortCircuitsAndKeepsStatus(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js", "README.md")
	f.runner.fail["check-types"] = gates.Result{ExitCode: 2, Stderr: strings.Repeat("E", 900)}
	f.runner.fail["run-tests"] = gates.Result{ExitCode: 1, Stderr: "tests broke"}

	out := f.v.Handle(context.Background(), f.event("Edit", "dist/app.js"))
	require.Equal(t, hook.ResultContinue, out.Result)
	require.Contains(t, out.Message, "gate 'typecheck' failed")
	require.NotContains(t, out.Message, "tests")
	require.Contains(t, out.Message, strings.Repeat("E", 500))
	require.NotContains(t, out.Message, strings.Repeat("E", 501))
	require.Equal(t, []string{"check-types"}, f.runner.ran)

	q := f.queue(t)
	task, _ := q.Task("T-1")
	require.Equal(t, taskqueue.StatusInProgress, task.Status)
	require.NotNil(t, q.CurrentTask)
}

func TestOptionalGateNeverRuns(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js", "README.md")
	f.runner.fail["run-lint"] = gates.Result{ExitCode: 1, Stderr: "lint"}

	out := f.v.Handle(context.Background(), f.event("Write", "dist/app.js"))
	require.Contains(t, out.Message, "T-1 VERIFIED & DONE!")
	require.Equal(t, []string{"check-types", "run-tests"}, f.runner.ran)
}

func TestSuccessfulCompletion(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js", "dist/vendor.js", "README.md")

	out := f.v.Handle(context.Background(), f.event("Write", "README.md"))
	require.Equal(t, hook.ResultContinue, out.Result)
	require.Contains(t, out.Message, "✅ T-1 VERIFIED & DONE!")
	require.Contains(t, out.Message, "  ✓ dist/*.js\n  ✓ README.md\n")
	require.Contains(t, out.Message, "  ✓ typecheck\n  ✓ tests\n")
	require.NotContains(t, out.Message, "lint")
	require.Contains(t, out.Message, "Duration: 25 minutes")

	q := f.queue(t)
	require.Nil(t, q.CurrentTask)
	require.Equal(t, 1, q.Summary.CompletedTasks)
	task, _ := q.Task("T-1")
	require.Equal(t, taskqueue.StatusDone, task.Status)
	require.Equal(t, "2026-10-17T09:25:00Z", task.CompletedAt)
	require.Equal(t, 3, task.MaxRetries)
	next, _ := q.Task("T-2")
	require.Equal(t, taskqueue.StatusPending, next.Status)

	// Replaying the event changes nothing.
	before := f.rawQueue(t)
	f.runner.ran = nil
	again := f.v.Handle(context.Background(), f.event("Write", "README.md"))
	require.Equal(t, hook.Continue(), again)
	require.Empty(t, f.runner.ran)
	require.Equal(t, before, f.rawQueue(t))
}

func TestCompletionWithoutGates(t *testing.T) {
	q := `current_task: A
summary:
  completed_tasks: 4
tasks:
  - id: A
    title: only
    status: in_progress
    outputs: [notes.md]
`
	f := newFixture(t, q, true)
	f.touch(t, "notes.md")

	out := f.v.Handle(context.Background(), f.event("Write", "notes.md"))
	require.Contains(t, out.Message, "(no gates configured)")
	require.NotContains(t, out.Message, "Duration")
	require.Equal(t, 5, f.queue(t).Summary.CompletedTasks)
}

func TestPersistenceFailureIsReported(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js", "README.md")
	// A directory where the lock file should go makes locking fail.
	require.NoError(t, os.MkdirAll(f.cfg.LockPath(), 0o755))

	out := f.v.Handle(context.Background(), f.event("Write", "dist/app.js"))
	require.Equal(t, hook.ResultContinue, out.Result)
	require.Contains(t, out.Message, "Task verified but failed to update task-queue.yaml")
	require.Equal(t, queueYAML, f.rawQueue(t))
}

func TestPreview(t *testing.T) {
	f := newFixture(t, queueYAML, true)
	f.touch(t, "dist/app.js")

	p, err := f.v.Preview(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "T-1", p.Task.ID)
	require.Equal(t, []string{"README.md"}, p.Outputs.Missing)
	require.Nil(t, p.Gates)
	require.False(t, p.Ready())

	f.touch(t, "README.md")
	p, err = f.v.Preview(context.Background(), true)
	require.NoError(t, err)
	require.True(t, p.Ready())
	require.Equal(t, queueYAML, f.rawQueue(t))

	p, err = f.v.PreviewTask("T-2")
	require.NoError(t, err)
	require.Equal(t, 0, p.Outputs.Satisfied)

	_, err = f.v.PreviewTask("T-9")
	require.Error(t, err)
}

func TestPreviewWithoutCurrentTask(t *testing.T) {
	f := newFixture(t, strings.Replace(queueYAML, "current_task: T-1", "current_task: ~", 1), true)
	_, err := f.v.Preview(context.Background(), false)
	require.ErrorIs(t, err, ErrNoCurrentTask)
}

func TestElapsedMinutes(t *testing.T) {
	m, ok := elapsedMinutes("2026-10-17T09:00:00Z", fixedNow)
	require.True(t, ok)
	require.Equal(t, 25, m)

	m, ok = elapsedMinutes("2026-10-17T08:59:31.5Z", fixedNow)
	require.True(t, ok)
	require.Equal(t, 25, m)

	_, ok = elapsedMinutes("yesterday", fixedNow)
	require.False(t, ok)
	_, ok = elapsedMinutes("", fixedNow)
	require.False(t, ok)
}
