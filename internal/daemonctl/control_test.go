package daemonctl

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribed.pid")
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected error for missing pid file")
	}

	if err := os.WriteFile(path, []byte("1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pid, err := ReadPID(path)
	if err != nil || pid != 1234 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}

	if err := os.WriteFile(path, []byte("junk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected error for malformed pid file")
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Fatal("current process should be alive")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatal("non-positive pids are never alive")
	}
}

func TestEnsureStartedDetectsRunningDaemon(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "scribed.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping socket test: %v", err)
		}
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	result, err := EnsureStarted(socketPath, "/does/not/matter", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning || result.Launched {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestStopAndTerminateWhenNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := StopAndTerminate(cfg, time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}
