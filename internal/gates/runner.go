// Package gates runs quality-gate commands.
package gates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Result is the captured outcome of one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
	Err      error
}

// OK reports whether the command exited zero within its timeout.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0 && !r.TimedOut
}

// Runner executes a shell command in dir, killing it after timeout.
type Runner interface {
	Run(ctx context.Context, dir, command string, timeout time.Duration) Result
}

// ShellRunner runs commands through sh -c.
type ShellRunner struct {
	Shell string
}

// NewShellRunner returns a runner using /bin/sh.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: "sh"}
}

// Run executes command. A timeout or a failure to start is reported in the
// Result, never as a panic or a separate error.
func (r *ShellRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		res.ExitCode = -1
		res.Err = fmt.Errorf("command did not finish: %w", ctx.Err())
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = fmt.Errorf("failed to run command: %w", err)
	}
	return res
}
