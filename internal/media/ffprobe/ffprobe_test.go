package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "60.5", Channels: 2},
			{CodecType: "video"},
		},
		Format: Format{
			Duration: "61.25",
			Size:     "1000",
		},
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 61.25 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "ffprobe")
	payload := `{"streams":[{"codec_type":"audio","duration":"42.5","channels":1}],"format":{"duration":"","size":"100"}}`
	script := "#!/bin/sh\ncat <<'EOF'\n" + payload + "\nEOF\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	seconds, err := Duration(context.Background(), stub, "/tmp/sample.wav")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if seconds != 42.5 {
		t.Fatalf("expected stream duration fallback, got %v", seconds)
	}
}

func TestInspectReportsCommandFailure(t *testing.T) {
	if _, err := Inspect(context.Background(), "/nonexistent/ffprobe", "/tmp/sample.wav"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
