package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/ipc"
	"scribe/internal/language"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				for {
					event, err := client.ReadEvent()
					if err != nil {
						if errors.Is(err, io.EOF) {
							fmt.Fprintln(stdout, "Daemon closed the connection")
							return nil
						}
						return fmt.Errorf("read event: %w", err)
					}
					if jsonOut {
						line, err := ipc.Encode(event)
						if err != nil {
							return err
						}
						if _, err := stdout.Write(line); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintln(stdout, watchLine(event))
				}
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit raw NDJSON event documents")
	return cmd
}

func watchLine(event ipc.Event) string {
	switch ev := event.(type) {
	case ipc.StateEvent:
		detail := fmt.Sprintf("%s (queue %d)", ev.Status, len(ev.Queue))
		if ev.Current != nil {
			detail = fmt.Sprintf("%s, processing %s", detail, ev.Current.Filename)
		}
		return fmt.Sprintf("%s  state      %s", watchClock(ev.Timestamp), detail)
	case ipc.StartedEvent:
		return fmt.Sprintf("%s  started    %s (duration %s)", watchClock(ev.Timestamp), ev.Filename, formatDuration(ev.DurationSeconds))
	case ipc.ProgressEvent:
		return fmt.Sprintf("%s  progress   %.1f%% %s", watchClock(ev.Timestamp), ev.Percent, ev.Stage)
	case ipc.CompletedEvent:
		return fmt.Sprintf("%s  completed  %s -> %s (%s, %d speakers)",
			watchClock(ev.Timestamp), ev.Filename, ev.TranscriptPath, language.DisplayName(ev.Language), ev.SpeakerCount)
	case ipc.FailedEvent:
		return fmt.Sprintf("%s  failed     %s: %s", watchClock(ev.Timestamp), ev.Filename, ev.Error)
	case ipc.HistoryEvent:
		return fmt.Sprintf("%s  history    %d entries", watchClock(ev.Timestamp), len(ev.Transcripts))
	default:
		return fmt.Sprintf("%s  %s", watchClock(""), event.EventName())
	}
}

func watchClock(value string) string {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Now().Format("15:04:05")
	}
	return ts.Format("15:04:05")
}
