package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/ipc"
	"scribe/internal/language"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently completed transcriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History()
				if err != nil {
					return err
				}
				entries := resp.Transcripts
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				if jsonOut {
					return writeJSON(cmd, entries)
				}

				stdout := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(stdout, "No transcriptions recorded yet")
					return nil
				}
				table := renderTable(
					[]string{"Completed", "File", "Result", "Duration", "Language", "Speakers", "Output"},
					historyRows(entries),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit history as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries to show (0 for all)")
	return cmd
}

func historyRows(entries []ipc.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		result := "ok"
		output := entry.TranscriptPath
		if !entry.Success {
			result = "failed"
			output = entry.Error
		}
		rows = append(rows, []string{
			formatEventTime(entry.CompletedAt),
			entry.OriginalFilename,
			result,
			formatDuration(entry.DurationSeconds),
			language.DisplayName(entry.Language),
			fmt.Sprintf("%d", entry.SpeakerCount),
			output,
		})
	}
	return rows
}

func formatEventTime(value string) string {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return ts.Format("2006-01-02 15:04")
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
