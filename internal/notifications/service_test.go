package notifications_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"scribe/internal/notifications"
	"scribe/internal/testsupport"
)

func TestNewServiceReturnsNoopWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.Enabled = false
	cfg.Notifications.Command = filepath.Join(t.TempDir(), "does-not-exist")

	svc := notifications.NewService(cfg)
	if err := svc.NotifyTranscriptionStarted(context.Background(), "meeting.wav"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestDesktopServiceFormatsSummaries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	dir := t.TempDir()
	capture := filepath.Join(dir, "sent.txt")
	stub := filepath.Join(dir, "notify-send")
	testsupport.WriteScript(t, stub, fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$*\" >> %q\n", capture))

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.Enabled = true
	cfg.Notifications.Command = stub
	svc := notifications.NewService(cfg)

	ctx := context.Background()
	if err := svc.NotifyTranscriptionStarted(ctx, "/incoming/team-standup.m4a"); err != nil {
		t.Fatalf("notify started: %v", err)
	}
	if err := svc.NotifyTranscriptionFailed(ctx, "/incoming/team-standup.m4a", "exit status 1"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := svc.NotifyTranscriptionTimeout(ctx, "/incoming/team-standup.m4a"); err != nil {
		t.Fatalf("notify timeout: %v", err)
	}

	data, err := os.ReadFile(capture)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 notifications, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "-u normal") || !strings.Contains(lines[0], "Starting Transcription: Team Standup") {
		t.Fatalf("unexpected start notification: %q", lines[0])
	}
	if !strings.Contains(lines[0], "Processing team-standup.m4a") {
		t.Fatalf("start notification missing filename: %q", lines[0])
	}
	if !strings.Contains(lines[1], "-u critical") || !strings.Contains(lines[1], "Transcription Failed: Team Standup") {
		t.Fatalf("unexpected failure notification: %q", lines[1])
	}
	if !strings.Contains(lines[1], "exit status 1") {
		t.Fatalf("failure notification missing reason: %q", lines[1])
	}
	if !strings.Contains(lines[2], "-u critical") || !strings.Contains(lines[2], "Transcription Timeout: Team Standup") {
		t.Fatalf("unexpected timeout notification: %q", lines[2])
	}
}

func TestDesktopServiceReportsCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "notify-send")
	testsupport.WriteScript(t, stub, "#!/bin/sh\necho 'no notification daemon' >&2\nexit 1\n")

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.Enabled = true
	cfg.Notifications.Command = stub
	svc := notifications.NewService(cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from failing notify command")
	}
	if !strings.Contains(err.Error(), "no notification daemon") {
		t.Fatalf("expected command output in error, got %v", err)
	}
}
