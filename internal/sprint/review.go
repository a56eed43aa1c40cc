package sprint

import (
	"fmt"
	"strings"
	"time"

	"github.com/lindwerg/taskgate/internal/gates"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

// Review renders the sprint-review.md archived with a finished sprint.
func Review(q *taskqueue.Queue, report gates.Report, now time.Time) string {
	var b strings.Builder

	title := fmt.Sprintf("Sprint %d Review", q.Sprint)
	if q.Project != "" {
		title += ": " + q.Project
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Stories: %d\n", taskqueue.CountStories(q.Tasks))
	fmt.Fprintf(&b, "- Tasks completed: %d/%d\n", taskqueue.CountByStatus(q.Tasks)[taskqueue.StatusDone], len(q.Tasks))
	if d := taskqueue.TotalDuration(q.Tasks); d > 0 {
		fmt.Fprintf(&b, "- Total duration: %d minutes\n", d)
	}
	if report.AllPassed {
		b.WriteString("- Quality gates: PASSED\n")
	} else {
		b.WriteString("- Quality gates: FAILED\n")
	}

	b.WriteString("\n## Stories\n")
	for _, story := range taskqueue.GroupByStory(q.Tasks) {
		name := story.ID
		if name == "" {
			name = "(no story)"
		}
		fmt.Fprintf(&b, "\n### %s (%d/%d)\n\n", name, story.CompletedTasks, len(story.Tasks))
		b.WriteString("| Task | Title | Commit | Minutes |\n")
		b.WriteString("|------|-------|--------|---------|\n")
		for _, t := range story.Tasks {
			commit, minutes := "", ""
			if t.Receipt != nil {
				commit = t.Receipt.CommitHash
				if t.Receipt.DurationMinutes > 0 {
					minutes = fmt.Sprintf("%d", t.Receipt.DurationMinutes)
				}
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", t.ID, escapeCell(t.Title), commit, minutes)
		}
	}

	if len(report.Gates) > 0 {
		b.WriteString("\n## Quality Gates\n\n")
		for _, g := range report.Gates {
			mark := "✓"
			if !g.Passed {
				mark = "✗"
			}
			req := ""
			if !g.Required {
				req = " (optional)"
			}
			fmt.Fprintf(&b, "- %s %s%s\n", mark, g.Name, req)
		}
	}

	writeList(&b, "Blockers", q.Scratchpad.Blockers)
	writeList(&b, "Decisions", q.Scratchpad.Decisions)
	writeList(&b, "Warnings", q.Scratchpad.Warnings)
	writeList(&b, "Learnings", append(append([]string{}, q.Scratchpad.Learnings...), q.ExecutionContext.RecentLearnings...))
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
