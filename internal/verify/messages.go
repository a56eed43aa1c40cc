package verify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lindwerg/taskgate/internal/gates"
	"github.com/lindwerg/taskgate/internal/outputs"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

var startedAtLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func malformedMessage(err error) string {
	return fmt.Sprintf("⚠️ Failed to parse task-queue.yaml: %v", err)
}

func progressMessage(rel string, rep outputs.Report) string {
	return fmt.Sprintf("📦 Output verified: %s\nProgress: %d/%d outputs\nMissing: %s",
		rel, rep.Satisfied, rep.Total, strings.Join(rep.Missing, ", "))
}

func gateFailureMessage(out gates.Outcome) string {
	return fmt.Sprintf("⚠️ All outputs created but gate '%s' failed:\n\n%s\n\nFix errors before task can be marked done.",
		out.Failed, out.Excerpt)
}

func persistFailureMessage() string {
	return "⚠️ Task verified but failed to update task-queue.yaml"
}

func successMessage(task *taskqueue.Task, rep outputs.Report, out gates.Outcome, configured []taskqueue.QualityGate, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s VERIFIED & DONE!\n\n", task.ID)

	b.WriteString("Outputs verified:\n")
	for _, r := range rep.Results {
		fmt.Fprintf(&b, "  ✓ %s\n", r.Pattern)
	}

	b.WriteString("\nGates passed:\n")
	switch {
	case len(configured) == 0:
		b.WriteString("  (no gates configured)\n")
	case len(out.Ran) == 0:
		b.WriteString("  (no required gates)\n")
	default:
		for _, name := range out.Ran {
			fmt.Fprintf(&b, "  ✓ %s\n", name)
		}
	}

	b.WriteString("\nStatus updated in task-queue.yaml\n")
	if minutes, ok := elapsedMinutes(task.StartedAt, now); ok {
		fmt.Fprintf(&b, "Duration: %d minutes\n", minutes)
	}
	b.WriteString("Ready for next task!")
	return b.String()
}

// elapsedMinutes rounds the time since startedAt to whole minutes.
func elapsedMinutes(startedAt string, now time.Time) (int, bool) {
	startedAt = strings.TrimSpace(startedAt)
	if startedAt == "" {
		return 0, false
	}
	for _, layout := range startedAtLayouts {
		start, err := time.Parse(layout, startedAt)
		if err != nil {
			continue
		}
		minutes := int(math.Round(now.Sub(start).Minutes()))
		if minutes < 0 {
			minutes = 0
		}
		return minutes, true
	}
	return 0, false
}
