package notifications

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scribe/internal/config"
)

const sendTimeout = 5 * time.Second

// Service defines the notification surface exposed to the ingestion engine.
// Successful transcriptions are announced by the transcriber itself, so the
// daemon only reports starts and failures.
type Service interface {
	NotifyTranscriptionStarted(ctx context.Context, sourcePath string) error
	NotifyTranscriptionFailed(ctx context.Context, sourcePath, reason string) error
	NotifyTranscriptionTimeout(ctx context.Context, sourcePath string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a desktop notification service backed by the configured
// command. When notifications are disabled or no command is configured, a noop
// implementation is returned.
func NewService(cfg *config.Config) Service {
	command := strings.TrimSpace(cfg.Notifications.Command)
	if !cfg.Notifications.Enabled || command == "" {
		return noopService{}
	}
	return &desktopService{command: command}
}

type urgency string

const (
	urgencyNormal   urgency = "normal"
	urgencyCritical urgency = "critical"
)

type desktopService struct {
	command string
}

func (s *desktopService) NotifyTranscriptionStarted(ctx context.Context, sourcePath string) error {
	return s.send(ctx, urgencyNormal,
		fmt.Sprintf("Starting Transcription: %s", displayTitle(sourcePath)),
		fmt.Sprintf("Processing %s", filepath.Base(sourcePath)))
}

func (s *desktopService) NotifyTranscriptionFailed(ctx context.Context, sourcePath, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return s.send(ctx, urgencyCritical,
		fmt.Sprintf("Transcription Failed: %s", displayTitle(sourcePath)),
		reason)
}

func (s *desktopService) NotifyTranscriptionTimeout(ctx context.Context, sourcePath string) error {
	return s.send(ctx, urgencyCritical,
		fmt.Sprintf("Transcription Timeout: %s", displayTitle(sourcePath)),
		"Processing took too long")
}

func (s *desktopService) TestNotification(ctx context.Context) error {
	return s.send(ctx, urgencyNormal, "Scribe", "Notification system test")
}

// send shells out to the notify command. A hung notification daemon must not
// stall ingestion, so every send carries its own short deadline.
func (s *desktopService) send(ctx context.Context, level urgency, summary, body string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	args := []string{"-a", "scribe", "-u", string(level), summary, body}
	cmd := exec.CommandContext(sendCtx, s.command, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if detail := strings.TrimSpace(string(output)); detail != "" {
			return fmt.Errorf("send notification: %w: %s", err, detail)
		}
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// displayTitle renders a recording filename as a human readable notification
// title. Separators collapse to spaces and words are title cased.
func displayTitle(sourcePath string) string {
	if sourcePath == "" {
		return "Unknown Recording"
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Unknown Recording"
	}
	return cases.Title(language.Und).String(title)
}

type noopService struct{}

func (noopService) NotifyTranscriptionStarted(context.Context, string) error        { return nil }
func (noopService) NotifyTranscriptionFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyTranscriptionTimeout(context.Context, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
