package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/daemonctl"
	"scribe/internal/deps"
	"scribe/internal/ipc"
	"scribe/internal/preflight"
)

// statusReport aggregates everything `scribe status` displays. Dependency
// checks run locally so the report stays useful when the daemon is down.
type statusReport struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid,omitempty"`
	State        *ipc.StateEvent `json:"state,omitempty"`
	Dependencies []deps.Status   `json:"dependencies"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := collectStatus(cfg)
			if jsonOut {
				return writeJSON(cmd, report)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderStatusReport(report, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func collectStatus(cfg *config.Config) statusReport {
	report := statusReport{Dependencies: preflight.CheckSystemDeps(cfg)}

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		return report
	}
	defer client.Close()

	snapshot, err := client.Snapshot()
	if err != nil {
		return report
	}
	report.Running = true
	report.State = &snapshot
	if pid, err := daemonctl.ReadPID(cfg.PIDFilePath()); err == nil {
		report.PID = pid
	}
	return report
}

func renderStatusReport(report statusReport, colorize bool) []string {
	var lines []string

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if !report.Running {
		lines = append(lines, renderStatusLine("Scribe", statusWarn, "Not running (run `scribe start`)", colorize))
	} else {
		detail := "Running"
		if report.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", report.PID)
		}
		lines = append(lines, renderStatusLine("Scribe", statusOK, detail, colorize))
		lines = append(lines, stateLines(report.State, colorize)...)
	}
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(report.Dependencies, colorize)...)

	if report.Running && report.State != nil {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Queue", colorize)...)
		if len(report.State.Queue) == 0 {
			lines = append(lines, "Queue is empty")
		} else {
			rows := make([][]string, 0, len(report.State.Queue))
			for i, name := range report.State.Queue {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), name})
			}
			table := renderTable([]string{"Position", "File"}, rows, []columnAlignment{alignRight, alignLeft})
			lines = append(lines, strings.Split(table, "\n")...)
		}
	}

	return lines
}

func stateLines(state *ipc.StateEvent, colorize bool) []string {
	if state == nil {
		return nil
	}
	var lines []string
	switch state.Status {
	case ipc.StatusTranscribing:
		lines = append(lines, renderStatusLine("State", statusOK, state.Status, colorize))
	case ipc.StatusError:
		detail := state.Status
		if reason := lastFailureReason(state.History); reason != "" {
			detail = fmt.Sprintf("%s (%s)", state.Status, reason)
		}
		lines = append(lines, renderStatusLine("State", statusError, detail, colorize))
	default:
		lines = append(lines, renderStatusLine("State", statusOK, state.Status, colorize))
	}

	if job := state.Current; job != nil {
		detail := fmt.Sprintf("%s - %s %.1f%%", job.Filename, job.Stage, job.ProgressPercent)
		if job.Stage == "" {
			detail = fmt.Sprintf("%s - %.1f%%", job.Filename, job.ProgressPercent)
		}
		lines = append(lines, renderStatusLine("Current", statusInfo, detail, colorize))
	}
	lines = append(lines, renderStatusLine("Queue", statusInfo, fmt.Sprintf("%d waiting", len(state.Queue)), colorize))

	if stats := state.Stats; stats != nil {
		detail := fmt.Sprintf("%d total (%d ok, %d failed)", stats.TotalProcessed, stats.Successful, stats.Failed)
		lines = append(lines, renderStatusLine("Processed", statusInfo, detail, colorize))
		if stats.LastProcessed != "" {
			lines = append(lines, renderStatusLine("Last file", statusInfo, stats.LastProcessed, colorize))
		}
	}
	return lines
}

func lastFailureReason(history []ipc.HistoryEntry) string {
	for _, entry := range history {
		if !entry.Success {
			return entry.Error
		}
	}
	return ""
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}
