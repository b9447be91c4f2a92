package daemon_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/engine"
	"scribe/internal/ipc"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/state"
	"scribe/internal/testsupport"
	"scribe/internal/transcriber"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	bridge := ipc.NewBridge(logger)
	store := state.New(cfg, bridge, logger)
	eng := engine.New(cfg, store, transcriber.NewService(cfg, logger), notifications.NewService(cfg), logger)
	d, err := daemon.New(cfg, store, bridge, eng, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func startDaemon(t *testing.T, d *daemon.Daemon) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon test: %v", err)
		}
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	startDaemon(t, d)

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.SocketPath != cfg.SocketPath() {
		t.Fatalf("unexpected socket path: %s", status.SocketPath)
	}

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("dial daemon socket: %v", err)
	}
	defer client.Close()
	snapshot, err := client.Snapshot()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Status != ipc.StatusIdle {
		t.Fatalf("expected idle snapshot, got %q", snapshot.Status)
	}
	if snapshot.History == nil {
		t.Fatal("snapshot should carry a history array")
	}

	// Second start should fail
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("expected socket to be removed, stat err: %v", err)
	}

	// Stop is idempotent.
	d.Stop()
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	startDaemon(t, first)

	second := newDaemon(t, cfg)
	err := second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}

	// The running instance's socket must survive the rejected start.
	if _, err := os.Stat(cfg.SocketPath()); err != nil {
		t.Fatalf("socket should still exist: %v", err)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	bridge := ipc.NewBridge(logger)
	store := state.New(cfg, bridge, logger)
	eng := engine.New(cfg, store, transcriber.NewService(cfg, logger), notifications.NewService(cfg), logger)

	if _, err := daemon.New(nil, store, bridge, eng, logger); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := daemon.New(cfg, nil, bridge, eng, logger); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := daemon.New(cfg, store, bridge, eng, nil); err != nil {
		t.Fatalf("nil logger should be tolerated: %v", err)
	}
}
