package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/lindwerg/taskgate/internal/gates"
	"github.com/lindwerg/taskgate/internal/outputs"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

// ErrNoCurrentTask is returned by Preview when current_task is unset or dangling.
var ErrNoCurrentTask = errors.New("no current task")

// Preview is what Handle would decide for the current task right now,
// without the relevance filter and without committing anything.
type Preview struct {
	Task    taskqueue.Task
	Outputs outputs.Report
	// Gates is nil when outputs are incomplete, since gates would not run.
	Gates *gates.Outcome
}

// Ready reports whether the task would be marked done.
func (p *Preview) Ready() bool {
	return p.Outputs.Complete() && p.Gates != nil && p.Gates.Passed
}

// Preview evaluates the current task. runGates=false stops after the
// completeness check.
func (v *Verifier) Preview(ctx context.Context, runGates bool) (*Preview, error) {
	doc, err := v.store.Load()
	if err != nil {
		return nil, err
	}
	task, ok := doc.CurrentTask()
	if !ok {
		return nil, ErrNoCurrentTask
	}
	return v.preview(ctx, doc.Queue(), task, runGates), nil
}

// PreviewTask evaluates an arbitrary task's outputs, never its gates.
func (v *Verifier) PreviewTask(id string) (*Preview, error) {
	doc, err := v.store.Load()
	if err != nil {
		return nil, err
	}
	task, ok := doc.Queue().Task(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	return v.preview(context.Background(), doc.Queue(), task, false), nil
}

func (v *Verifier) preview(ctx context.Context, q *taskqueue.Queue, task *taskqueue.Task, runGates bool) *Preview {
	p := &Preview{
		Task:    *task,
		Outputs: v.resolver.Check(task.Outputs),
	}
	if runGates && p.Outputs.Complete() {
		out := gates.Evaluate(ctx, v.runner, q.QualityGates, v.cfg.ProjectDir, v.cfg.GateTimeout)
		p.Gates = &out
	}
	return p
}
