package transcriber_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/testsupport"
	"scribe/internal/transcriber"
)

func captureArgs(t *testing.T, cfg *config.Config, sourcePath string) []string {
	t.Helper()
	svc := transcriber.NewService(cfg, logging.NewNop())
	var captured []string
	svc.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		captured = append([]string(nil), args...)
		return nil
	})
	if _, err := svc.Transcribe(context.Background(), sourcePath); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	return captured
}

func TestBuildsDefaultArguments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "standup.m4a")

	args := captureArgs(t, cfg, source)

	want := []string{source, "-o", cfg.Paths.OutputDir}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestAllFormatsAddsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcriber.AllFormats = true
	source := filepath.Join(cfg.Paths.IncomingDir, "standup.m4a")

	args := captureArgs(t, cfg, source)

	want := []string{source, "-o", cfg.Paths.OutputDir, "--all-formats"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestForcedLanguageAddsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcriber.Language = "sv"
	source := filepath.Join(cfg.Paths.IncomingDir, "interview.mp3")

	args := captureArgs(t, cfg, source)

	want := []string{source, "-o", cfg.Paths.OutputDir, "-l", "sv"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestDiarizationDisabledGlobally(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcriber.Diarize = false
	source := filepath.Join(cfg.Paths.IncomingDir, "memo.wav")

	args := captureArgs(t, cfg, source)

	if args[len(args)-1] != "--no-diarize" {
		t.Fatalf("expected --no-diarize, got %v", args)
	}
}

func TestFilenameTokenDisablesDiarization(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "call-NoSpeakers.m4a")

	args := captureArgs(t, cfg, source)

	if args[len(args)-1] != "--no-diarize" {
		t.Fatalf("expected filename token to disable diarization, got %v", args)
	}
}

func TestTranscribeCollectsResultMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "standup.m4a")

	svc := transcriber.NewService(cfg, logging.NewNop())
	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		testsupport.WriteFileString(t, filepath.Join(cfg.Paths.OutputDir, "standup.txt"), "hello world\n")
		doc := `{"language":"sv","segments":[{"speaker":"SPEAKER_00"},{"speaker":"SPEAKER_01"},{"speaker":"SPEAKER_00"},{"text":"no speaker"}]}`
		testsupport.WriteFileString(t, filepath.Join(cfg.Paths.OutputDir, "formats", "standup.json"), doc)
		return nil
	})

	result, err := svc.Transcribe(context.Background(), source)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.TranscriptPath != filepath.Join(cfg.Paths.OutputDir, "standup.txt") {
		t.Fatalf("unexpected transcript path: %s", result.TranscriptPath)
	}
	if result.Language != "sv" {
		t.Fatalf("expected language sv, got %q", result.Language)
	}
	if result.SpeakerCount != 2 {
		t.Fatalf("expected 2 distinct speakers, got %d", result.SpeakerCount)
	}
}

func TestTranscribeDefaultsWithoutResultDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "memo.wav")

	svc := transcriber.NewService(cfg, logging.NewNop())
	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		testsupport.WriteFileString(t, filepath.Join(cfg.Paths.OutputDir, "memo.txt"), "text\n")
		return nil
	})

	result, err := svc.Transcribe(context.Background(), source)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Language != "unknown" || result.SpeakerCount != 0 {
		t.Fatalf("expected defaults, got %#v", result)
	}
}

func TestTranscribeWrapsCommandFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := transcriber.NewService(cfg, logging.NewNop())
	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		return errors.New("exit status 1")
	})

	_, err := svc.Transcribe(context.Background(), filepath.Join(cfg.Paths.IncomingDir, "bad.wav"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if services.Classify(err) != services.CategoryExternalTool {
		t.Fatalf("unexpected category: %v", services.Classify(err))
	}
}

func TestTranscribeTimeoutKillsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "transcribe")
	testsupport.WriteScript(t, stub, "#!/bin/sh\nexec sleep 30\n")
	cfg := testsupport.NewConfig(t, testsupport.WithTranscriberCommand(stub))
	cfg.Transcriber.TimeoutSeconds = 1

	svc := transcriber.NewService(cfg, logging.NewNop())
	_, err := svc.Transcribe(context.Background(), filepath.Join(cfg.Paths.IncomingDir, "slow.wav"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestReadProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFileString(t, cfg.ProgressFilePath(), `{"stage":"aligning","percent":70,"detail":"Aligning transcription","timestamp":"2026-01-02T15:04:05Z"}`)

	progress, err := transcriber.ReadProgress(cfg.ProgressFilePath())
	if err != nil {
		t.Fatalf("ReadProgress: %v", err)
	}
	if progress.Stage != "aligning" || progress.Percent != 70 {
		t.Fatalf("unexpected progress: %#v", progress)
	}

	if _, err := transcriber.ReadProgress(filepath.Join(cfg.Paths.StateDir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
