package gates

import (
	"context"
	"strings"
	"time"

	"github.com/lindwerg/taskgate/internal/taskqueue"
)

// ExcerptLimit caps how much failure output is carried into reports.
const ExcerptLimit = 500

// Outcome is the verdict of a short-circuit evaluation.
type Outcome struct {
	Passed bool
	// Ran lists the gates executed and passed, in order.
	Ran []string
	// Failed names the first failing required gate.
	Failed  string
	Excerpt string
}

// Evaluate runs the required gates in declaration order and stops at the
// first failure. Optional gates are never executed.
func Evaluate(ctx context.Context, runner Runner, gates []taskqueue.QualityGate, dir string, timeout time.Duration) Outcome {
	var out Outcome
	for _, g := range gates {
		if !g.Required {
			continue
		}
		res := runner.Run(ctx, dir, g.Command, timeout)
		if !res.OK() {
			out.Failed = g.Name
			out.Excerpt = Excerpt(res)
			return out
		}
		out.Ran = append(out.Ran, g.Name)
	}
	out.Passed = true
	return out
}

// Excerpt picks the most useful failure text and truncates it.
func Excerpt(res Result) string {
	msg := res.Stderr
	if strings.TrimSpace(msg) == "" {
		msg = res.Stdout
	}
	if strings.TrimSpace(msg) == "" {
		if res.Err != nil {
			msg = res.Err.Error()
		} else {
			msg = "Unknown error"
		}
	}
	if res.TimedOut && res.Err != nil && !strings.Contains(msg, res.Err.Error()) {
		msg = res.Err.Error() + "\n" + msg
	}
	return truncate(msg, ExcerptLimit)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// GateResult is one row of a full quality report.
type GateResult struct {
	Name       string `json:"name"`
	Command    string `json:"command"`
	Required   bool   `json:"required"`
	Passed     bool   `json:"passed"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Report is the full quality report written when a sprint is archived.
type Report struct {
	AllPassed bool         `json:"all_passed"`
	Gates     []GateResult `json:"gates"`
	Errors    []string     `json:"errors,omitempty"`
}

// RunAll executes every gate, required or not, without short-circuiting.
// AllPassed only considers required gates.
func RunAll(ctx context.Context, runner Runner, gates []taskqueue.QualityGate, dir string, timeout time.Duration) Report {
	rep := Report{AllPassed: true, Gates: []GateResult{}}
	for _, g := range gates {
		res := runner.Run(ctx, dir, g.Command, timeout)
		row := GateResult{
			Name:       g.Name,
			Command:    g.Command,
			Required:   g.Required,
			Passed:     res.OK(),
			ExitCode:   res.ExitCode,
			TimedOut:   res.TimedOut,
			DurationMS: res.Duration.Milliseconds(),
		}
		if !row.Passed {
			row.Error = Excerpt(res)
			if g.Required {
				rep.AllPassed = false
				rep.Errors = append(rep.Errors, g.Name+": "+row.Error)
			}
		}
		rep.Gates = append(rep.Gates, row)
	}
	return rep
}
