package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"scribe/internal/config"
	"scribe/internal/ipc"
)

// ErrDaemonNotRunning indicates no scribed instance is reachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	SignalSent bool
	ForcedKill bool
	PID        int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Launch starts a detached scribed process by invoking the daemon subcommand
// on the given executable.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one is already reachable.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		_ = client.Close()
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()
	if _, err := client.Status(); err != nil {
		return StartResult{}, fmt.Errorf("daemon started but is not responding: %w", err)
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// ReadPID parses the daemon PID file.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("pid file %q holds invalid pid %d", pidPath, pid)
	}
	return pid, nil
}

// ProcessAlive reports whether the given pid refers to a live process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user.
	return errors.Is(err, syscall.EPERM)
}

// SocketReachable reports whether a daemon accepts connections on the socket.
func SocketReachable(socketPath string) bool {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// ProcessInfo reports daemon reachability and the recorded PID when available.
func ProcessInfo(cfg *config.Config) (bool, int) {
	if cfg == nil {
		return false, 0
	}
	pid, _ := ReadPID(cfg.PIDFilePath())
	return SocketReachable(cfg.SocketPath()), pid
}

// WaitForShutdown polls until the socket is gone and the process has exited.
func WaitForShutdown(socketPath string, pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !SocketReachable(socketPath) && !ProcessAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for daemon to stop")
}

// StopAndTerminate signals the daemon to stop and force-kills the process if
// it is still alive after gracePeriod. The grace period must cover an
// in-flight transcription, which the daemon waits out before exiting.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	if cfg == nil {
		return StopResult{}, errors.New("configuration not available")
	}

	socketPath := cfg.SocketPath()
	pid, pidErr := ReadPID(cfg.PIDFilePath())
	reachable := SocketReachable(socketPath)
	if !reachable && (pidErr != nil || !ProcessAlive(pid)) {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pidErr != nil {
		return StopResult{}, fmt.Errorf("daemon is reachable but its pid file is unreadable: %w", pidErr)
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			// Process already gone; clear leftover runtime files.
			cleanupRuntimeFiles(cfg)
			return StopResult{PID: pid}, nil
		}
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result := StopResult{SignalSent: true, PID: pid}

	if err := WaitForShutdown(socketPath, pid, gracePeriod); err == nil {
		return result, nil
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return result, fmt.Errorf("force kill daemon process %d: %w", pid, err)
	}
	cleanupRuntimeFiles(cfg)
	result.ForcedKill = true
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	if cfg == nil {
		return RestartResult{}, errors.New("configuration not available")
	}

	stopResult, stopErr := StopAndTerminate(cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(cfg.SocketPath(), executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// cleanupRuntimeFiles removes pid, lock, and socket files a killed daemon
// never had the chance to clean up.
func cleanupRuntimeFiles(cfg *config.Config) {
	_ = os.Remove(cfg.PIDFilePath())
	_ = os.Remove(cfg.LockFilePath())
	_ = os.Remove(cfg.SocketPath())
}
