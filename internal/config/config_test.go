package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantIncoming := filepath.Join(tempHome, "scribe", "incoming")
	if cfg.Paths.IncomingDir != wantIncoming {
		t.Fatalf("unexpected incoming dir: got %q want %q", cfg.Paths.IncomingDir, wantIncoming)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "scribe")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if !cfg.Transcriber.Diarize {
		t.Fatal("expected diarization enabled by default")
	}
	if cfg.Transcriber.TimeoutSeconds != 7200 {
		t.Fatalf("unexpected transcriber timeout: %d", cfg.Transcriber.TimeoutSeconds)
	}
	if cfg.Notifications.Enabled {
		t.Fatal("expected notifications disabled by default")
	}
	if !cfg.Watcher.ProcessExisting {
		t.Fatal("expected process_existing enabled by default")
	}
	if len(cfg.Watcher.Extensions) == 0 || cfg.Watcher.Extensions[0] != ".m4a" {
		t.Fatalf("unexpected extensions: %v", cfg.Watcher.Extensions)
	}
	if got := cfg.SocketPath(); got != filepath.Join(wantState, "scribed.sock") {
		t.Fatalf("unexpected socket path: %q", got)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.IncomingDir, cfg.Paths.OutputDir, cfg.Paths.ArchiveDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "scribe.toml")

	body := strings.Join([]string{
		"[paths]",
		`incoming_dir = "` + filepath.Join(tempDir, "in") + `"`,
		`output_dir = "` + filepath.Join(tempDir, "out") + `"`,
		`archive_dir = "` + filepath.Join(tempDir, "done") + `"`,
		`state_dir = "` + filepath.Join(tempDir, "state") + `"`,
		"",
		"[watcher]",
		`extensions = ["M4A", "wav"]`,
		"poll_interval_seconds = 2",
		"",
		"[transcriber]",
		`command = "my-transcriber"`,
		"timeout_seconds = 60",
		`language = "Swedish"`,
	}, "\n")
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.IncomingDir != filepath.Join(tempDir, "in") {
		t.Fatalf("unexpected incoming dir: %q", cfg.Paths.IncomingDir)
	}
	if cfg.Transcriber.Command != "my-transcriber" {
		t.Fatalf("unexpected transcriber command: %q", cfg.Transcriber.Command)
	}
	if cfg.Transcriber.Language != "sv" {
		t.Fatalf("expected forced language normalized to sv, got %q", cfg.Transcriber.Language)
	}
	if cfg.Watcher.PollIntervalSeconds != 2 {
		t.Fatalf("unexpected poll interval: %d", cfg.Watcher.PollIntervalSeconds)
	}
	want := []string{".m4a", ".wav"}
	if len(cfg.Watcher.Extensions) != len(want) {
		t.Fatalf("unexpected extensions: %v", cfg.Watcher.Extensions)
	}
	for i, ext := range want {
		if cfg.Watcher.Extensions[i] != ext {
			t.Fatalf("expected extension %q at %d, got %v", ext, i, cfg.Watcher.Extensions)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tempDir := t.TempDir()

	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "zero timeout",
			body: "[transcriber]\ntimeout_seconds = -1\n",
			want: "transcriber.timeout_seconds",
		},
		{
			name: "bad log format",
			body: "[logging]\nformat = \"yaml\"\n",
			want: "logging.format",
		},
		{
			name: "wait shorter than poll",
			body: "[watcher]\npoll_interval_seconds = 10\nmax_stability_wait_seconds = 5\n",
			want: "max_stability_wait_seconds",
		},
		{
			name: "archive equals incoming",
			body: "[paths]\nincoming_dir = \"" + tempDir + "\"\narchive_dir = \"" + tempDir + "\"\n",
			want: "archive_dir",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scribe.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Transcriber.Command != "transcribe" {
		t.Fatalf("unexpected sample transcriber command: %q", cfg.Transcriber.Command)
	}
}
