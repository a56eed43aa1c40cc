package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lindwerg/taskgate/internal/outputs"
	"github.com/lindwerg/taskgate/internal/queueserver"
	"github.com/lindwerg/taskgate/internal/taskqueue"
	"github.com/lindwerg/taskgate/internal/terminal"
	"github.com/lindwerg/taskgate/internal/verify"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the sprint task queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sprint progress",
	Long:  "Display the sprint number, task counts per status and the current task.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui := terminal.New(cmd.OutOrStdout())
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := queueserver.LoadStatus(cfg)
		if err != nil {
			printQueueLoadError(ui, cfg, err)
			return nil
		}

		title := fmt.Sprintf("Sprint %d", st.Sprint)
		if st.Project != "" {
			title += ": " + st.Project
		}
		ui.Header(title)
		ui.Progress(st.Counts[string(taskqueue.StatusDone)], st.TotalTasks, "tasks done")
		for _, s := range taskqueue.AllStatuses() {
			ui.Detail(string(s), fmt.Sprintf("%d", st.Counts[string(s)]))
		}
		ui.Detail("stories", fmt.Sprintf("%d", st.Stories))
		if st.CurrentTask != "" {
			ui.Detail("current task", st.CurrentTask)
		} else {
			ui.Detail("current task", "none")
		}
		if !st.SessionActive {
			ui.Info("Ralph session inactive: writes will not complete tasks.")
		}
		if st.ValidationPending {
			ui.Warning("Sprint awaits validation. Run /validate-sprint.")
		}
		return nil
	},
}

var checkSkipGates bool

var queueCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run verification of the current task",
	Long:  "Check whether the current task's outputs exist and its required quality gates pass, without changing the task queue.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui := terminal.New(cmd.OutOrStdout())
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, err := verify.New(cfg).Preview(cmd.Context(), !checkSkipGates)
		if errors.Is(err, verify.ErrNoCurrentTask) {
			ui.Info("No current task.")
			return nil
		}
		if err != nil {
			printQueueLoadError(ui, cfg, err)
			return nil
		}

		ui.Header(fmt.Sprintf("%s: %s", p.Task.ID, p.Task.Title))
		ui.Progress(p.Outputs.Satisfied, p.Outputs.Total, "outputs")
		for _, r := range p.Outputs.Results {
			text := r.Pattern
			if outputs.HasMeta(r.Pattern) {
				text = fmt.Sprintf("%s (%d files)", r.Pattern, len(r.Files))
			}
			ui.Item(r.Exists(), text)
		}

		ui.Divider()
		switch {
		case !p.Outputs.Complete():
			ui.Warning(fmt.Sprintf("%d output(s) missing.", len(p.Outputs.Missing)))
		case p.Gates == nil:
			ui.Success("All outputs present (gates skipped).")
		case p.Gates.Passed:
			for _, g := range p.Gates.Ran {
				ui.Item(true, "gate "+g)
			}
			ui.Success("Ready: the next write to an output completes this task.")
		default:
			for _, g := range p.Gates.Ran {
				ui.Item(true, "gate "+g)
			}
			ui.Item(false, "gate "+p.Gates.Failed)
			ui.Error(p.Gates.Excerpt)
		}
		return nil
	},
}

func init() {
	queueCheckCmd.Flags().BoolVar(&checkSkipGates, "skip-gates", false, "Only check outputs, do not run quality gates")

	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueCheckCmd)
}
